package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/htol/mobicore/mobi"
)

var (
	version = "dev"
	commit  = "none"
)

func init() {
	if version != "dev" {
		return
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
}

func buildLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func loadDocument(path string) (*mobi.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := mobi.Load(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return doc, nil
}

func loggerFor(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Root().PersistentFlags().GetString("log-level")
	return buildLogger(level)
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.mobi>",
		Short: "Print PDB/MOBI header fields, EXTH tags, and hybrid status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}
			return runInspect(os.Stdout, doc, loggerFor(cmd))
		},
	}
}

func runInspect(w *os.File, doc *mobi.Document, logger *slog.Logger) error {
	fmt.Fprintf(w, "Name:          %s\n", doc.PDBHeader.Name)
	fmt.Fprintf(w, "Records:       %d\n", len(doc.Records))
	fmt.Fprintf(w, "Hybrid:        %v\n", doc.IsHybrid())
	fmt.Fprintf(w, "Encrypted:     %v\n", doc.IsEncrypted())

	if fullname, err := doc.GetFullname(); err == nil {
		fmt.Fprintf(w, "Full name:     %s\n", fullname)
	} else {
		logger.Debug("full name unavailable", "error", err)
	}

	if version, ok := doc.GetFileVersion(); ok {
		fmt.Fprintf(w, "File version:  %d\n", version)
	}
	if code, tag, ok := doc.GetLocale(); ok {
		fmt.Fprintf(w, "Locale:        0x%04x (%s)\n", code, tag)
	}

	fmt.Fprintf(w, "Exists FDST:   %v\n", doc.ExistsFDST())
	fmt.Fprintf(w, "Exists Guide:  %v\n", doc.ExistsGuide())
	fmt.Fprintf(w, "Exists Huffman:%v\n", doc.ExistsHuffman())
	fmt.Fprintf(w, "Exists DRM:    %v\n", doc.ExistsDRM())

	fmt.Fprintln(w, "\nEXTH tags:")
	exth := doc.EXTH()
	for _, tag := range sortedEXTHTags(exth) {
		for _, v := range exth.ByTag(tag) {
			fmt.Fprintf(w, "  %-5d %s\n", v.Tag, describeEXTHValue(v))
		}
	}
	return nil
}

func describeEXTHValue(v mobi.EXTHValue) string {
	switch {
	case v.Text != "":
		return v.Text
	case len(v.Raw) <= 4:
		return strconv.FormatUint(uint64(v.Number), 10)
	default:
		return fmt.Sprintf("<%d bytes binary>", len(v.Raw))
	}
}

func sortedEXTHTags(exth mobi.EXTHMap) []uint32 {
	tags := make([]uint32, 0, len(exth))
	for t := range exth {
		tags = append(tags, t)
	}
	for i := 1; i < len(tags); i++ {
		for j := i; j > 0 && tags[j-1] > tags[j]; j-- {
			tags[j-1], tags[j] = tags[j], tags[j-1]
		}
	}
	return tags
}

func newTextCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "text <file.mobi>",
		Short: "Decompress the active rendition's text flow to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFor(cmd)
			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("creating %s: %w", outPath, err)
				}
				defer f.Close()
				out = f
			}

			if err := doc.DumpText(out); err != nil {
				return fmt.Errorf("dumping text: %w", err)
			}
			logger.Info("text dumped", "records", len(doc.Records))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write text to this file instead of stdout")
	return cmd
}

func newExtractCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "extract <file.mobi>",
		Short: "Classify and decode every resource record into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}
			if outDir == "" {
				return fmt.Errorf("%w: --output is required", mobi.ErrParamError)
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", outDir, err)
			}
			return runExtract(doc, outDir, loggerFor(cmd))
		},
	}
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "directory to write decoded resources into")
	return cmd
}

func runExtract(doc *mobi.Document, outDir string, logger *slog.Logger) error {
	extracted := 0
	for i, rec := range doc.Records {
		switch mobi.ClassifyResource(rec.Data) {
		case mobi.ResourceJPEG, mobi.ResourceGIF, mobi.ResourcePNG, mobi.ResourceBMP:
			if err := writeResource(outDir, i, imageExt(rec.Data), rec.Data); err != nil {
				return err
			}
			extracted++
		case mobi.ResourceFont:
			font, err := mobi.DecodeFont(rec.Data)
			if err != nil {
				logger.Warn("skipping font record", "index", i, "error", err)
				continue
			}
			ext := strings.ToLower(font.Format)
			if ext == "" {
				ext = "bin"
			}
			if err := writeResource(outDir, i, ext, font.Data); err != nil {
				return err
			}
			extracted++
		case mobi.ResourceAudio, mobi.ResourceVideo:
			media, err := mobi.DecodeMedia(rec.Data)
			if err != nil {
				logger.Warn("skipping media record", "index", i, "error", err)
				continue
			}
			if err := writeResource(outDir, i, strings.ToLower(media.Magic), media.Body); err != nil {
				return err
			}
			extracted++
		default:
			// text, BOUNDARY, and unrecognized records are left in place
		}
	}
	logger.Info("extraction complete", "resources", extracted, "dir", outDir)
	return nil
}

func imageExt(data []byte) string {
	switch mobi.ClassifyResource(data) {
	case mobi.ResourceJPEG:
		return "jpg"
	case mobi.ResourceGIF:
		return "gif"
	case mobi.ResourcePNG:
		return "png"
	case mobi.ResourceBMP:
		return "bmp"
	default:
		return "bin"
	}
}

func writeResource(dir string, index int, ext string, data []byte) error {
	name := filepath.Join(dir, fmt.Sprintf("resource-%04d.%s", index, ext))
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func newRootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:     "mobidump",
		Version: version,
		Short:   "Inspect and unpack Mobipocket (MOBI/AZW/KF7/KF8) e-book files",
		Long: `mobidump is a command-line front end over the mobi decoder core: it
reads a Palm Database / Mobipocket container and prints metadata, dumps
the decompressed text flow, or extracts embedded resources.`,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate(fmt.Sprintf("mobidump %s (commit: %s)\n", version, commit))
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (error/warn/info/debug)")

	cmd.AddCommand(newInspectCmd(), newTextCmd(), newExtractCmd())
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
