package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mapdex/internal/format"
	"mapdex/internal/intern"
	"mapdex/internal/loader"
	"mapdex/internal/mappings"
	"mapdex/internal/namespace"
	"mapdex/internal/source"
	"mapdex/internal/visitor"
)

var (
	convertFrom      string
	convertTo        string
	convertOut       string
	convertNormalize bool
	convertRenames   map[string]string
	convertConfig    visitor.NamespaceConfig
)

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Convert a mappings file to Tiny v2 or TSRG2",
	Long: `Convert a mappings file, Enigma directory or mappings jar to another format.

By default the parser streams straight into the writer, keeping parameters and
comments. With --normalize the input is first loaded into the entry model
(obfuscated, intermediary and named slots) and written back from it.

Examples:
  mapdex convert client.txt --to tiny_v2 --out client.tiny
  mapdex convert yarn-1.20.1.jar --to tsrg2
  mapdex convert mappings/ --from enigma --rename named=yarn
  mapdex convert joined.tsrg --normalize --obf obf --intermediary srg`,
	Args: cobra.ExactArgs(1),
	Run:  runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&convertFrom, "from", "auto", "Input format (auto, proguard, srg, tsrg, tsrg2, tiny_v1, tiny_v2, enigma)")
	convertCmd.Flags().StringVar(&convertTo, "to", "tiny_v2", "Output format (tiny_v2, tsrg2)")
	convertCmd.Flags().StringVarP(&convertOut, "out", "o", "", "Output file (default: stdout)")
	convertCmd.Flags().BoolVar(&convertNormalize, "normalize", false, "Round-trip through the entry model")
	convertCmd.Flags().StringToStringVar(&convertRenames, "rename", nil, "Rename namespaces, e.g. srg=intermediary")
	convertCmd.Flags().StringVar(&convertConfig.ObfMerged, "obf", "", "Namespace feeding the obfuscated slot (--normalize)")
	convertCmd.Flags().StringVar(&convertConfig.Intermediary, "intermediary", "", "Namespace feeding the intermediary slot (--normalize)")
	convertCmd.Flags().StringVar(&convertConfig.Named, "named", "", "Namespace feeding the named slot (--normalize)")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) {
	logger := newLogger("human")
	ctx := newContext()

	from := format.Format("")
	if convertFrom != "" && convertFrom != "auto" {
		f, err := format.ParseFormat(convertFrom)
		if err != nil {
			exitWithError("Error", err)
		}
		from = f
	}
	to, err := format.ParseFormat(convertTo)
	if err != nil {
		exitWithError("Error", err)
	}

	in, err := readConvertInput(ctx, args[0], from)
	if err != nil {
		exitWithError("Error reading input", err)
	}

	var out io.Writer = os.Stdout
	if convertOut != "" {
		file, err := os.Create(convertOut)
		if err != nil {
			exitWithError("Error creating output", err)
		}
		defer file.Close()
		out = file
	}
	bw := bufio.NewWriter(out)

	opts := convertOptions{
		To:        to,
		Normalize: convertNormalize,
		Renames:   convertRenames,
		Config:    convertConfig,
		Enigma:    format.EnigmaOptions{ShowErrors: true, Logger: logger},
	}
	if err := convertMappings(in, bw, opts); err != nil {
		exitWithError("Error converting mappings", err)
	}
	if err := bw.Flush(); err != nil {
		exitWithError("Error writing output", err)
	}

	logger.Info("Converted mappings", map[string]interface{}{
		"input":  args[0],
		"from":   string(in.format),
		"to":     string(to),
		"inputs": len(in.files),
	})
}

type namedInput struct {
	name string
	data []byte
}

// convertInput is one logical mappings source: a single file, or every
// .mapping file of an Enigma tree.
type convertInput struct {
	format format.Format
	files  []namedInput
}

type convertOptions struct {
	To        format.Format
	Normalize bool
	Renames   map[string]string
	Config    visitor.NamespaceConfig
	Enigma    format.EnigmaOptions
}

func readConvertInput(ctx context.Context, path string, from format.Format) (*convertInput, error) {
	fetcher := source.NewLocalFetcher("")
	in := &convertInput{format: from}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(path)
	switch {
	case info.IsDir():
		in.format = format.Enigma
		err = fetcher.ForEachFile(ctx, path, func(rel string, data []byte) error {
			if strings.HasSuffix(rel, ".mapping") {
				in.files = append(in.files, namedInput{rel, data})
			}
			return nil
		})
	case strings.HasSuffix(lower, ".zip") || strings.HasSuffix(lower, ".jar"):
		var archive []byte
		if archive, err = fetcher.Fetch(ctx, path); err != nil {
			return nil, err
		}
		err = source.ForEachEntry(archive, func(name string, data []byte) error {
			if strings.HasSuffix(name, ".mapping") {
				in.files = append(in.files, namedInput{name, data})
			}
			return nil
		})
		if err == nil && len(in.files) > 0 {
			in.format = format.Enigma
		} else if err == nil {
			var data []byte
			if data, err = source.ReadEntry(archive, loader.DefaultArchiveEntry); err == nil {
				in.files = append(in.files, namedInput{loader.DefaultArchiveEntry, data})
			}
		}
	default:
		var data []byte
		if data, err = fetcher.Fetch(ctx, path); err == nil {
			in.files = append(in.files, namedInput{path, data})
		}
	}
	if err != nil {
		return nil, err
	}
	if len(in.files) == 0 {
		return nil, fmt.Errorf("%s: no mappings found", path)
	}

	if in.format == "" {
		f, err := format.DetectReader(bufio.NewReader(bytes.NewReader(in.files[0].data)))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.files[0].name, err)
		}
		in.format = f
	}
	return in, nil
}

// convertMappings parses in and writes it to w as opts.To.
func convertMappings(in *convertInput, w io.Writer, opts convertOptions) error {
	writer, err := format.NewWriter(opts.To, w)
	if err != nil {
		return err
	}
	if !opts.Normalize {
		return parseInput(in, withRenames(writer, opts.Renames), opts)
	}

	b := mappings.NewBuilder(mappings.New("", in.files[0].name, in.format.Source(), ""), intern.New())
	auto := &autoConfigVisitor{builder: b, config: opts.Config}
	if err := parseInput(in, withRenames(auto, opts.Renames), opts); err != nil {
		return err
	}
	return visitor.Bind(b.Build(), writer, visitor.BindOptions{})
}

func withRenames(v visitor.MappingsVisitor, renames map[string]string) visitor.MappingsVisitor {
	if len(renames) == 0 {
		return v
	}
	return visitor.Rename(v, renames)
}

func parseInput(in *convertInput, v visitor.MappingsVisitor, opts convertOptions) error {
	if in.format == format.Enigma {
		p := format.NewEnigmaParser(opts.Enigma)
		for _, f := range in.files {
			if err := p.AddFile(f.name, bytes.NewReader(f.data)); err != nil {
				return err
			}
		}
		return p.Parse(v)
	}
	if len(in.files) != 1 {
		return fmt.Errorf("%s takes exactly one input file", in.format)
	}
	return format.Parse(in.format, bytes.NewReader(in.files[0].data), v, format.Options{Enigma: opts.Enigma})
}

// autoConfigVisitor builds into a container, filling unset slots of the
// namespace config from the stream's namespaces: the first feeds the
// obfuscated slot, the second the intermediary slot and the third the named
// slot.
type autoConfigVisitor struct {
	builder *mappings.Builder
	config  visitor.NamespaceConfig
	*visitor.BuilderVisitor
}

func (a *autoConfigVisitor) VisitStart(ns namespace.Set) error {
	cfg := a.config
	if cfg.Intermediary == "" {
		switch {
		case ns.Len() == 1:
			cfg.Intermediary = ns.At(0)
		case ns.Len() >= 2:
			if cfg.ObfMerged == "" {
				cfg.ObfMerged = ns.At(0)
			}
			cfg.Intermediary = ns.At(1)
			if cfg.Named == "" && ns.Len() >= 3 {
				cfg.Named = ns.At(2)
			}
		}
	}
	a.BuilderVisitor = visitor.NewBuilderVisitor(a.builder, cfg)
	return a.BuilderVisitor.VisitStart(ns)
}
