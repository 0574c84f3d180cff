package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/slabcopy"
	"github.com/wippyai/slabcopy/internal/align"
)

type options struct {
	backing  string
	size     uintptr
	align    uintptr
	offset   uintptr
	stride   uintptr
	minAlign uintptr
	exact    bool
}

func main() {
	var (
		sizeStr     = flag.String("size", "256B", "Region size (e.g. 256B, 4KB, 1MB)")
		backing     = flag.String("backing", "heap", "Region backing: heap, mmap or wasm")
		alignment   = flag.Uint64("align", 16, "Base alignment of the region")
		offset      = flag.Uint64("offset", 0, "Offset of the first copy")
		stride      = flag.Uint64("stride", 0, "Element stride for each batch (0 = packed)")
		minAlign    = flag.Uint64("minalign", 1, "Minimum alignment of every copy")
		exact       = flag.Bool("exact", false, "Fail instead of skipping forward to an aligned offset")
		verbose     = flag.Bool("v", false, "Log copy decisions to stderr")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: slabdump [-size 256B] [-backing heap|mmap|wasm] [-align n] [-offset n] [-stride n] kind:value...")
		fmt.Fprintln(os.Stderr, "       kinds: u8 u16 u32 u64 s32 s64 f32 f64 vec4 (vec4:x/y/z/w)")
		fmt.Fprintln(os.Stderr, "       slabdump ... -i  (interactive mode)")
		os.Exit(1)
	}

	var size datasize.ByteSize
	if err := size.UnmarshalText([]byte(*sizeStr)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid -size %q: %v\n", *sizeStr, err)
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			slabcopy.SetLogger(logger)
			defer logger.Sync()
		}
	}

	opts := options{
		backing:  *backing,
		size:     uintptr(size.Bytes()),
		align:    uintptr(*alignment),
		offset:   uintptr(*offset),
		stride:   uintptr(*stride),
		minAlign: uintptr(*minAlign),
		exact:    *exact,
	}

	if err := run(context.Background(), opts, flag.Args(), *interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// result is a finished copy run, ready to print or browse.
type result struct {
	opts      options
	slabAlign uintptr
	entries   []entry
	data      []byte
	err       error
}

func execute(ctx context.Context, opts options, args []string) (*result, error) {
	if !align.IsPow2(opts.align) {
		return nil, fmt.Errorf("-align %d is not a power of two", opts.align)
	}
	batches, err := parseValues(args)
	if err != nil {
		return nil, err
	}

	r, err := openRegion(ctx, opts.backing, opts.size, opts.align)
	if err != nil {
		return nil, fmt.Errorf("open %s region: %w", opts.backing, err)
	}
	defer r.close()

	copyOpts := []slabcopy.CopyOption{slabcopy.WithMinAlign(opts.minAlign)}
	if opts.exact {
		copyOpts = append(copyOpts, slabcopy.Exact())
	}

	res := &result{opts: opts, slabAlign: r.slab.Align()}
	res.entries, res.err = copyBatches(r.slab, opts.offset, opts.stride, batches, copyOpts)

	data, err := r.observe()
	if err != nil {
		return nil, fmt.Errorf("read back region: %w", err)
	}
	res.data = append([]byte(nil), data...)
	return res, nil
}

func run(ctx context.Context, opts options, args []string, interactive bool) error {
	res, err := execute(ctx, opts, args)
	if err != nil {
		return err
	}
	if interactive {
		return runInteractive(res)
	}

	width := 0
	if term.IsTerminal(int(os.Stdout.Fd())) {
		width, _, _ = term.GetSize(int(os.Stdout.Fd()))
	}

	fmt.Println(res.header())
	fmt.Println()
	for i, e := range res.entries {
		fmt.Println(res.describe(i, e))
	}
	if len(res.entries) > 0 {
		fmt.Printf("\n%s\n", res.summary())
	}
	fmt.Println()
	fmt.Print(hexDump(res.data, res.entries, -1, rowWidth(width)))
	return res.err
}

func (r *result) header() string {
	return fmt.Sprintf("%s %s, base align %d",
		titleStyle.Render(r.opts.backing),
		humanize.IBytes(uint64(len(r.data))),
		r.slabAlign)
}

func (r *result) describe(i int, e entry) string {
	return fmt.Sprintf("#%d %s x%d  %s  %s",
		i,
		kindStyle.Render(e.kind),
		e.count,
		e.record,
		humanize.IBytes(uint64(e.record.Len)))
}

func (r *result) summary() string {
	first, last := r.entries[0].record, r.entries[len(r.entries)-1].record
	span := slabcopy.Record{Offset: first.Offset, Len: last.End() - first.Offset}
	used := uint64(last.End())
	return fmt.Sprintf("span %s, %s of %s used (%s)",
		span,
		humanize.IBytes(used),
		humanize.IBytes(uint64(len(r.data))),
		humanize.FtoaWithDigits(float64(used)*100/float64(len(r.data)), 1)+"%")
}
