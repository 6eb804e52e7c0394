package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/nvr-ai/imgmerge/compose"
	"github.com/nvr-ai/imgmerge/config"
	"github.com/nvr-ai/imgmerge/images"
	"github.com/nvr-ai/imgmerge/server"
	"github.com/nvr-ai/imgmerge/session"
	"github.com/nvr-ai/imgmerge/util"
)

// options holds the parsed command line.
type options struct {
	a, b   string
	dir    string
	out    string
	format string
	serve  bool
	addr   string
	config compose.Config
}

func parseOptions(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("imgmerge", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		opts                      options
		mode, bg, anchor, filter  string
		spacing, offsetX, offsetY int
		scale, opacity            int
	)
	def := compose.DefaultConfig()

	fs.StringVar(&opts.a, "a", "", "path to the first image (background in overlay mode)")
	fs.StringVar(&opts.b, "b", "", "path to the second image (overlay in overlay mode)")
	fs.StringVar(&mode, "mode", def.Mode.String(), "composition mode: "+strings.Join(compose.ModeNames(), ", "))
	fs.IntVar(&spacing, "spacing", def.Spacing, "gap in pixels between stacked images")
	fs.StringVar(&bg, "bg", def.BackgroundHex(), "background color as #rrggbb")
	fs.StringVar(&anchor, "anchor", def.Anchor.String(), "overlay anchor: "+strings.Join(compose.AnchorNames(), ", "))
	fs.IntVar(&offsetX, "offset-x", def.OffsetX, "overlay horizontal offset in pixels")
	fs.IntVar(&offsetY, "offset-y", def.OffsetY, "overlay vertical offset in pixels")
	fs.IntVar(&scale, "scale", def.ScalePercent, "overlay scale in percent")
	fs.IntVar(&opacity, "opacity", def.OpacityPercent, "overlay opacity in percent")
	fs.StringVar(&filter, "filter", def.Filter.String(), "overlay resampling filter: "+strings.Join(images.FilterNames(), ", "))
	fs.StringVar(&opts.format, "format", "", "output format (png, jpeg, webp, bmp, tiff)")
	fs.StringVar(&opts.out, "out", "", "output path (default <mode>-<unix millis>.<ext>)")
	fs.BoolVar(&opts.serve, "serve", false, "run the HTTP server instead of composing once")
	fs.StringVar(&opts.addr, "addr", "", "HTTP listen address (overrides "+config.EnvAddr+")")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		opts.dir = fs.Arg(0)
	}

	cfg := def
	var err error
	if cfg.Mode, err = compose.ParseMode(mode); err != nil {
		return nil, err
	}
	if cfg.Background, err = compose.ParseColor(bg); err != nil {
		return nil, err
	}
	if cfg.Anchor, err = compose.ParseAnchor(anchor); err != nil {
		return nil, err
	}
	if cfg.Filter, err = compose.ParseFilter(filter); err != nil {
		return nil, err
	}
	cfg.Spacing = spacing
	cfg.OffsetX, cfg.OffsetY = offsetX, offsetY
	cfg.ScalePercent = scale
	cfg.OpacityPercent = opacity
	opts.config = cfg.Normalized()

	return &opts, nil
}

// inputs resolves the two input paths. A path given with -a or -b is always
// used; whichever is missing is filled, in order, from the images in the
// positional directory other than the one already chosen.
func (o *options) inputs() (string, string, error) {
	if o.a != "" && o.b != "" {
		return o.a, o.b, nil
	}
	if o.dir == "" {
		return "", "", errors.New("two images are required: use -a and -b or pass a directory")
	}

	paths, err := util.ListImageFiles(o.dir)
	if err != nil {
		return "", "", errors.Wrapf(err, "failed to list %s", o.dir)
	}

	given := o.a + o.b
	var candidates []string
	for _, p := range paths {
		if given == "" || !samePath(p, given) {
			candidates = append(candidates, p)
		}
	}

	switch {
	case given == "" && len(candidates) < 2:
		return "", "", errors.Errorf("%s holds %d image(s), need 2", o.dir, len(candidates))
	case given != "" && len(candidates) < 1:
		return "", "", errors.Errorf("%s holds no other image to pair with %s", o.dir, given)
	case o.a != "":
		return o.a, candidates[0], nil
	case o.b != "":
		return candidates[0], o.b, nil
	}
	return candidates[0], candidates[1], nil
}

// samePath reports whether two paths name the same file.
func samePath(x, y string) bool {
	if filepath.Clean(x) == filepath.Clean(y) {
		return true
	}
	xi, err := os.Stat(x)
	if err != nil {
		return false
	}
	yi, err := os.Stat(y)
	if err != nil {
		return false
	}
	return os.SameFile(xi, yi)
}

// composeFiles composes the two inputs and writes the result. It returns the
// path written and its size in bytes.
func composeFiles(o *options, settings *config.Settings, now time.Time) (string, int, error) {
	first, second, err := o.inputs()
	if err != nil {
		return "", 0, err
	}
	a, b, err := util.LoadImagePair(first, second)
	if err != nil {
		return "", 0, err
	}
	log.Printf("loaded %s (%s %dx%d, %s) and %s (%s %dx%d, %s)",
		a.Path, a.Image.Format, a.Image.Width, a.Image.Height, humanize.IBytes(uint64(len(a.Image.Data))),
		b.Path, b.Image.Format, b.Image.Width, b.Image.Height, humanize.IBytes(uint64(len(b.Image.Data))))

	err = compose.CheckOutputSize(a.Decoded.Bounds().Size(), b.Decoded.Bounds().Size(), o.config, settings.MaxOutputPixels)
	if err != nil {
		return "", 0, err
	}

	format := settings.Format
	switch {
	case o.format != "":
		f, ok := images.ParseFormat(o.format)
		if !ok {
			return "", 0, errors.Wrapf(images.ErrUnsupportedFormat, "%q", o.format)
		}
		format = f
	case o.out != "":
		if f, ok := images.FormatFromExtension(o.out); ok {
			format = f
		}
	}

	start := time.Now()
	out := compose.Compose(a.Decoded, b.Decoded, o.config)
	log.Printf("composed %s %dx%d in %s (checksum %s)",
		o.config.Mode, out.Bounds().Dx(), out.Bounds().Dy(), time.Since(start), images.Checksum(out))

	data, err := images.EncodeBytes(out, format, settings.Encode)
	if err != nil {
		return "", 0, err
	}

	path := o.out
	if path == "" {
		path = session.ExportName(o.config.Mode, now, format)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", 0, errors.Wrapf(err, "failed to write %s", path)
	}
	return path, len(data), nil
}

func serve(settings *config.Settings) {
	srv := server.New(settings)
	srv.Profiler().Start(context.Background())
	defer srv.Profiler().Stop()

	killed := make(chan os.Signal, 1)
	signal.Notify(killed, os.Interrupt, syscall.SIGTERM)

	serverShutdown := make(chan struct{})
	go func() {
		sig := <-killed
		log.Printf("received signal to shutdown: %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("failed to shutdown server: %s", err)
		}
		cancel()
		close(serverShutdown)
	}()

	log.Printf("starting the web server on address %s (uploads up to %s)",
		settings.Addr, humanize.IBytes(uint64(settings.MaxUploadBytes)))
	if err := srv.Listen(); err != nil {
		log.Fatalf("failed to serve: %s", err)
	}

	<-serverShutdown
	log.Printf("server has shut down... Exiting.")
}

func main() {
	opts, err := parseOptions(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}

	settings, err := config.Load(".env")
	if err != nil {
		log.Fatalf("failed to load settings: %s", err)
	}
	if opts.addr != "" {
		settings.Addr = opts.addr
	}

	if opts.serve {
		serve(settings)
		return
	}

	path, size, err := composeFiles(opts, settings, time.Now())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %s (%s)\n", path, humanize.IBytes(uint64(size)))
}
