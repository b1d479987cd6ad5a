// translaitor — PPTX translator: extract slide text, translate with AI,
// reintegrate while preserving formatting.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agobi/translaitor/auth"
	"github.com/agobi/translaitor/config"
	"github.com/agobi/translaitor/extract"
	"github.com/agobi/translaitor/gemini"
	"github.com/agobi/translaitor/langmeta"
	"github.com/agobi/translaitor/memory"
	"github.com/agobi/translaitor/pptx"
	"github.com/agobi/translaitor/reintegrate"
	"github.com/agobi/translaitor/snapshot"
	"github.com/agobi/translaitor/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	cfgFile string
	verbose bool
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "translaitor",
		Short: "Translate PowerPoint presentations with AI",
		Long: `translaitor — translate PowerPoint presentations with AI.

Text is extracted per formatting run, so fonts, colors, and layout survive
translation untouched. The three pipeline stages can run separately (extract,
translate, reintegrate) to allow manual review of the translations, or in one
step (translate-pptx, translate-dir).

Commands:
  extract         Extract slide text into a JSON snapshot
  translate       Translate a JSON snapshot using Gemini
  reintegrate     Write a translated snapshot back into a PPTX
  translate-pptx  Full pipeline for a single presentation
  translate-dir   Full pipeline for every presentation in a directory
  styles          List available translation styles and topics
  auth            Manage the stored API key

Configuration is read from translaitor.yaml (current directory or home),
TRANSLAITOR_* environment variables, and flags, in increasing precedence.
The API key comes from --api-key, TRANSLAITOR_API_KEY, the config file, or
the credential store ('translaitor auth set-key').`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: translaitor.yaml in . or $HOME)")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable detailed logging")

	root.AddCommand(
		newExtractCmd(),
		newTranslateCmd(),
		newReintegrateCmd(),
		newTranslatePptxCmd(),
		newTranslateDirCmd(),
		newStylesCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("translaitor version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// styles
// ---------------------------------------------------------------------------

func newStylesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "styles",
		Short: "List available translation styles and topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			opts, err := cfg.TranslateOptions()
			if err != nil {
				return err
			}
			ps := opts.Prompts
			if ps == nil {
				ps = &translate.PromptSet{}
			}
			fmt.Printf("Styles:\n")
			for _, name := range ps.StyleNames() {
				fmt.Printf("  %s\n", name)
			}
			fmt.Printf("\nTopics:\n")
			for _, name := range ps.TopicNames() {
				fmt.Printf("  %s\n", name)
			}
			fmt.Printf("  general (no topic-specific instructions)\n")
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored API key",
		Long: `Manage the API key kept in the credential store.

The store lives at ` + "`$XDG_DATA_HOME/translaitor/auth.json`" + ` (default
~/.local/share/translaitor/auth.json) with owner-only permissions. A key
given via --api-key or TRANSLAITOR_API_KEY always takes precedence over
the store.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set-key <api-key>",
			Short: "Store an API key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := auth.SetKey(auth.DefaultProvider, args[0]); err != nil {
					return err
				}
				logSuccess("API key %s saved to %s", auth.MaskKey(args[0]), auth.FilePath())
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Show the stored API key (masked)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				key := auth.Key(auth.DefaultProvider)
				if key == "" {
					logInfo("No API key stored (%s)", auth.FilePath())
					return nil
				}
				fmt.Printf("%s\n", auth.MaskKey(key))
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove",
			Short: "Delete the stored API key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := auth.Remove(auth.DefaultProvider); err != nil {
					return err
				}
				logSuccess("API key removed")
				return nil
			},
		},
	)
	return cmd
}

// ---------------------------------------------------------------------------
// Config loading with flag binding
// ---------------------------------------------------------------------------

// bindCommonFlags registers the translation/network flags shared by the
// commands that call the API.
func bindCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("api-key", "", "Gemini API key (or TRANSLAITOR_API_KEY env var)")
	cmd.Flags().String("model", "", "Model name (default: "+gemini.DefaultModel+")")
	cmd.Flags().String("base-url", "", "Custom API base URL")
	cmd.Flags().String("proxy", "", "HTTP/HTTPS proxy URL")
	cmd.Flags().Duration("timeout", 0, "Request timeout (0 = default)")
	cmd.Flags().Int("max-retries", 0, "Maximum retries on transient API errors")
	cmd.Flags().StringP("target-lang", "t", "", "Target language code, e.g. hu, de, pt-BR (required)")
	cmd.Flags().String("source-lang", "", "Source language code (default: auto-detect)")
	cmd.Flags().String("style", "", "Translation style: direct, formal, casual, technical")
	cmd.Flags().String("topic", "", "Topic context: diving, medical, technical, business, education")
	cmd.Flags().Int("chunk-size", 0, "Units per API request (0 = all at once)")
	cmd.Flags().String("prompts-file", "", "YAML file with custom style/topic instructions")
	cmd.Flags().String("cache", "", "Translation memory file, reuses translations across runs")
}

var flagKeys = map[string]string{
	"api-key":      "api_key",
	"model":        "model",
	"base-url":     "base_url",
	"proxy":        "proxy",
	"timeout":      "timeout",
	"max-retries":  "max_retries",
	"target-lang":  "target_lang",
	"source-lang":  "source_lang",
	"style":        "style",
	"topic":        "topic",
	"chunk-size":   "chunk_size",
	"prompts-file": "prompts_file",
	"cache":        "cache_file",
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.New()
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, err
	}
	if verbose && cfg.Source() != "" {
		logInfo("Using config file: %s", cfg.Source())
	}
	return cfg, nil
}

func requireTargetLang(cfg *config.Config) error {
	if cfg.TargetLang == "" {
		return errors.New("no target language specified, use --target-lang (e.g. --target-lang hu)")
	}
	return nil
}

func requireAPIKey(cfg *config.Config) error {
	if cfg.APIKey == "" {
		cfg.APIKey = auth.Key(auth.DefaultProvider)
	}
	if cfg.APIKey == "" {
		return errors.New("no API key configured, use --api-key, TRANSLAITOR_API_KEY, api_key in translaitor.yaml, or 'translaitor auth set-key'")
	}
	return nil
}

// signalContext returns a context cancelled on the first interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		logWarning("Interrupted, shutting down...")
		cancel()
	}()
	return ctx, cancel
}

// newTranslator builds the API client and translator from the resolved
// config, wiring retry and progress reporting into the log helpers. When a
// cache file is configured, the returned memory is non-nil and the caller
// saves it after a successful run.
func newTranslator(cfg *config.Config) (*translate.Translator, *memory.Memory, error) {
	client := gemini.New(cfg.Gemini())
	client.OnRetry = func(attempt int, wait time.Duration, source gemini.DelaySource) {
		logWarning("API request failed (attempt %d), retrying in %s (%s)", attempt, wait, source)
	}
	if verbose {
		client.OnLog = func(format string, args ...any) {
			logInfo(format, args...)
		}
	}

	opts, err := cfg.TranslateOptions()
	if err != nil {
		return nil, nil, err
	}
	opts.Verbose = verbose
	opts.OnProgress = func(done, total int) {
		logInfo("  translated %d/%d units", done, total)
	}
	opts.OnLog = func(format string, args ...any) {
		logInfo(format, args...)
	}

	var mem *memory.Memory
	if cfg.CacheFile != "" {
		mem, err = memory.Load(cfg.CacheFile)
		if err != nil {
			return nil, nil, err
		}
		if verbose {
			logInfo("Translation memory %s: %s", cfg.CacheFile, mem.Summary())
		}
		opts.Memory = mem
	}
	return translate.New(client, opts), mem, nil
}

// saveMemory persists the translation memory, if one is in use.
func saveMemory(mem *memory.Memory) {
	if mem == nil {
		return
	}
	if err := mem.Save(); err != nil {
		logWarning("Could not save translation memory: %v", err)
	}
}

// ---------------------------------------------------------------------------
// extract
// ---------------------------------------------------------------------------

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <input.pptx> [output.json]",
		Short: "Extract slide text into a JSON snapshot",
		Long: `Extract all translatable text from a presentation into a JSON snapshot.

Each formatting run becomes one unit with a stable ID and position. The
snapshot can be edited or translated, then written back with 'reintegrate'.
The default output path replaces the .pptx extension with .json.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			output := replaceExt(input, ".json")
			if len(args) > 1 {
				output = args[1]
			}
			return runExtract(input, output)
		},
	}
	return cmd
}

func runExtract(input, output string) error {
	logInfo("Extracting text from %s...", input)
	snap, err := extract.File(input, output)
	if err != nil {
		return err
	}
	units := snap.Units()
	logSuccess("Extracted %d text units from %d slides to %s", len(units), len(snap.Slides), output)
	return nil
}

// ---------------------------------------------------------------------------
// translate (snapshot JSON -> snapshot JSON)
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate <input.json> [output.json]",
		Short: "Translate a JSON snapshot using Gemini",
		Long: `Translate an extracted snapshot into the target language.

The output snapshot keeps every unit's ID and position, so it can be
reintegrated into the original presentation. The default output path inserts
the target language before the .json extension.

Examples:
  translaitor translate deck.json --target-lang hu
  translaitor translate deck.json deck.hu.json -t hu --style formal --topic diving`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := requireTargetLang(cfg); err != nil {
				return err
			}
			if err := requireAPIKey(cfg); err != nil {
				return err
			}
			input := args[0]
			output := replaceExt(input, "."+cfg.TargetLang+".json")
			if len(args) > 1 {
				output = args[1]
			}
			return runTranslateSnapshot(cfg, input, output)
		},
	}
	bindCommonFlags(cmd)
	return cmd
}

func runTranslateSnapshot(cfg *config.Config, input, output string) error {
	snap, err := snapshot.Load(input)
	if err != nil {
		return err
	}

	tr, mem, err := newTranslator(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	logInfo("Translating %d units to %s (model: %s, style: %s, topic: %s)...",
		len(snap.Units()), langmeta.Name(cfg.TargetLang), cfg.Model, cfg.Style, cfg.Topic)

	translated, err := tr.Snapshot(ctx, snap, cfg.TargetLang)
	if err != nil {
		return err
	}
	if err := translated.Save(output); err != nil {
		return err
	}
	saveMemory(mem)
	logSuccess("Translated snapshot written to %s", output)
	return nil
}

// ---------------------------------------------------------------------------
// reintegrate
// ---------------------------------------------------------------------------

func newReintegrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reintegrate <input.pptx> <translated.json> [output.pptx]",
		Short: "Write a translated snapshot back into a PPTX",
		Long: `Apply a translated snapshot to the original presentation.

The snapshot must align with the presentation it was extracted from; a
mismatch aborts before anything is written. Only the text changes, all
formatting and untouched parts are copied byte for byte. The default output
path inserts the snapshot's target language before the .pptx extension.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, snapPath := args[0], args[1]
			output := ""
			if len(args) > 2 {
				output = args[2]
			}
			return runReintegrate(input, snapPath, output)
		},
	}
	return cmd
}

func runReintegrate(input, snapPath, output string) error {
	if output == "" {
		snap, err := snapshot.Load(snapPath)
		if err != nil {
			return err
		}
		lang := snap.TargetLang
		if lang == "" {
			lang = "translated"
		}
		output = replaceExt(input, "."+lang+".pptx")
	}

	logInfo("Reintegrating %s into %s...", snapPath, input)
	replaced, err := reintegrate.File(input, snapPath, output)
	if err != nil {
		return err
	}
	logSuccess("Wrote %s (%d runs replaced)", output, replaced)
	return nil
}

// ---------------------------------------------------------------------------
// translate-pptx (full pipeline, single file)
// ---------------------------------------------------------------------------

func newTranslatePptxCmd() *cobra.Command {
	var keepSnapshots bool

	cmd := &cobra.Command{
		Use:   "translate-pptx <input.pptx> [output.pptx]",
		Short: "Extract, translate, and reintegrate in one step",
		Long: `Run the full pipeline on a single presentation.

Equivalent to extract + translate + reintegrate without intermediate files.
Use --keep-snapshots to also write the source and translated JSON snapshots
next to the output for review.

Examples:
  translaitor translate-pptx deck.pptx --target-lang hu
  translaitor translate-pptx deck.pptx deck_hu.pptx -t hu --topic diving`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := requireTargetLang(cfg); err != nil {
				return err
			}
			if err := requireAPIKey(cfg); err != nil {
				return err
			}
			input := args[0]
			output := replaceExt(input, "."+cfg.TargetLang+".pptx")
			if len(args) > 1 {
				output = args[1]
			}

			ctx, cancel := signalContext()
			defer cancel()

			tr, mem, err := newTranslator(cfg)
			if err != nil {
				return err
			}
			if err := translatePresentation(ctx, tr, cfg, input, output, keepSnapshots); err != nil {
				return err
			}
			saveMemory(mem)
			return nil
		},
	}
	bindCommonFlags(cmd)
	cmd.Flags().BoolVar(&keepSnapshots, "keep-snapshots", false, "Write source and translated JSON snapshots next to the output")
	return cmd
}

// translatePresentation runs extract, translate, reintegrate on one file.
func translatePresentation(ctx context.Context, tr *translate.Translator, cfg *config.Config, input, output string, keepSnapshots bool) error {
	logInfo("Processing %s...", input)

	deck, err := pptx.Open(input)
	if err != nil {
		return err
	}
	snap := extract.FromDeck(deck)
	units := snap.Units()
	logInfo("  %d text units in %d slides", len(units), len(snap.Slides))

	translated, err := tr.Snapshot(ctx, snap, cfg.TargetLang)
	if err != nil {
		return err
	}

	if keepSnapshots {
		srcPath := replaceExt(output, ".source.json")
		dstPath := replaceExt(output, ".json")
		if err := snap.Save(srcPath); err != nil {
			return err
		}
		if err := translated.Save(dstPath); err != nil {
			return err
		}
		logInfo("  snapshots: %s, %s", srcPath, dstPath)
	}

	replaced, err := reintegrate.Deck(deck, translated)
	if err != nil {
		return err
	}
	if err := deck.Save(output); err != nil {
		return err
	}
	logSuccess("Wrote %s (%d runs replaced)", output, replaced)
	return nil
}

// ---------------------------------------------------------------------------
// translate-dir (full pipeline, directory)
// ---------------------------------------------------------------------------

func newTranslateDirCmd() *cobra.Command {
	var (
		outDir    string
		recursive bool
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "translate-dir <directory>",
		Short: "Translate every presentation in a directory",
		Long: `Run the full pipeline on every .pptx file in a directory.

Outputs are written next to their inputs (or under --out-dir) with the target
language inserted before the extension. Files whose output already exists are
skipped unless --overwrite is given. A failure in one presentation does not
stop the others; the command exits non-zero if any file failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := requireTargetLang(cfg); err != nil {
				return err
			}
			if err := requireAPIKey(cfg); err != nil {
				return err
			}
			return runTranslateDir(cfg, args[0], outDir, recursive, overwrite)
		},
	}
	bindCommonFlags(cmd)
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Write outputs to this directory instead of next to inputs")
	cmd.Flags().BoolVar(&recursive, "recursive", false, "Descend into subdirectories")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Re-translate files whose output already exists")
	return cmd
}

func runTranslateDir(cfg *config.Config, dir, outDir string, recursive, overwrite bool) error {
	inputs, err := findPresentations(dir, recursive, cfg.TargetLang)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		logInfo("No .pptx files found in %s", dir)
		return nil
	}
	logInfo("Found %d presentation(s) in %s", len(inputs), dir)

	tr, mem, err := newTranslator(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	done, skipped, failed := 0, 0, 0
	for _, input := range inputs {
		if ctx.Err() != nil {
			logWarning("Stopping, %d file(s) not processed", len(inputs)-done-skipped-failed)
			break
		}

		output := replaceExt(input, "."+cfg.TargetLang+".pptx")
		if outDir != "" {
			output = filepath.Join(outDir, filepath.Base(output))
		}

		if !overwrite {
			if _, err := os.Stat(output); err == nil {
				logInfo("Skipping %s (output exists)", input)
				skipped++
				continue
			}
		}

		if outDir != "" {
			if err := os.MkdirAll(outDir, 0755); err != nil {
				return err
			}
		}

		if err := translatePresentation(ctx, tr, cfg, input, output, false); err != nil {
			if ctx.Err() != nil {
				logWarning("Stopping, %d file(s) not processed", len(inputs)-done-skipped-failed)
				break
			}
			logError("%s: %v", input, err)
			failed++
			continue
		}
		done++
		saveMemory(mem)
	}

	logInfo("Summary: %d translated, %d skipped, %d failed", done, skipped, failed)
	if failed > 0 {
		return fmt.Errorf("%d presentation(s) failed", failed)
	}
	return nil
}

// findPresentations lists .pptx files, excluding temp files and outputs of a
// previous run for the same target language.
func findPresentations(dir string, recursive bool, targetLang string) ([]string, error) {
	var inputs []string
	langSuffix := "." + targetLang + ".pptx"

	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if !strings.EqualFold(filepath.Ext(name), ".pptx") {
			return nil
		}
		// Office lock files
		if strings.HasPrefix(name, "~$") {
			return nil
		}
		if targetLang != "" && strings.HasSuffix(name, langSuffix) {
			return nil
		}
		inputs = append(inputs, path)
		return nil
	}

	if err := filepath.WalkDir(dir, walk); err != nil {
		return nil, err
	}
	return inputs, nil
}

// replaceExt swaps a file's extension for newExt (which includes the dot).
func replaceExt(path, newExt string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + newExt
}
