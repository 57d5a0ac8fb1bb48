// Command sheet inspects and converts tabular files using the sheet core:
// it parses every cell, translates expressions, derives the dependency
// graph and prints the calculation order, without needing a live execution
// engine attached.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/cellgraph/sheet"
)

var identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// staticSpread is a diagnostic engine: it renders collection literals in R
// syntax, scans identifiers lexically (an over-approximation the sheet
// filters), and echoes expressions back instead of evaluating them.
type staticSpread struct {
	bindings map[string]string
}

func newStaticSpread() *staticSpread {
	return &staticSpread{bindings: make(map[string]string)}
}

func (s *staticSpread) Set(id, expression, name string) (string, error) {
	s.bindings[id] = expression
	if name != "" {
		s.bindings[name] = expression
	}
	return "expression " + expression, nil
}

func (s *staticSpread) Get(name string) (string, error) {
	return s.bindings[name], nil
}

func (s *staticSpread) Collect(ids []string) (string, error) {
	return "c(" + strings.Join(ids, ", ") + ")", nil
}

func (s *staticSpread) Depends(expression string) ([]string, error) {
	return identifierPattern.FindAllString(expression, -1), nil
}

func (s *staticSpread) Clear(id, name string) error {
	delete(s.bindings, id)
	if name != "" {
		delete(s.bindings, name)
	}
	return nil
}

func (s *staticSpread) List() ([]string, error) {
	names := make([]string, 0, len(s.bindings))
	for name := range s.bindings {
		names = append(names, name)
	}
	return names, nil
}

var (
	logger   hclog.Logger
	language string
	anchor   string
	verbose  bool
)

// load reads a tabular file into a fresh sheet, picking the format from
// the file extension
func load(path string) (*sheet.Sheet, error) {
	s := sheet.New(newStaticSpread(), sheet.WithLanguage(language))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		if _, err := s.ImportXLSX(path); err != nil {
			return nil, err
		}
	case ".tsv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if _, err := s.ImportDelimited(f, '\t', anchor); err != nil {
			return nil, err
		}
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if _, err := s.ImportDelimited(f, ',', anchor); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported file extension %q", filepath.Ext(path))
	}
	return s, nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	s, err := load(args[0])
	if err != nil {
		return err
	}

	for _, id := range s.Ids() {
		c, _ := s.Cell(id)
		if c.Source == "" && !verbose {
			continue
		}
		fmt.Printf("%s\t%s\t%s\n", c.ID, c.Kind, c.Translated)
		if deps := s.Depends(id); len(deps) > 0 {
			fmt.Printf("\tdepends: %s\n", strings.Join(deps, ", "))
		}
	}

	order, err := s.Order()
	if err != nil {
		return err
	}
	fmt.Printf("order: %s\n", strings.Join(order, " "))
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	s, err := load(args[0])
	if err != nil {
		return err
	}

	out := args[1]
	switch strings.ToLower(filepath.Ext(out)) {
	case ".xlsx":
		err = s.ExportXLSX(out)
	case ".tsv":
		err = writeDelimited(s, out, '\t')
	case ".csv":
		err = writeDelimited(s, out, ',')
	default:
		return fmt.Errorf("unsupported output extension %q", filepath.Ext(out))
	}
	if err != nil {
		return err
	}
	logger.Info("converted", "from", args[0], "to", out)
	return nil
}

func writeDelimited(s *sheet.Sheet, path string, comma rune) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.ExportDelimited(f, comma)
}

func main() {
	logger = hclog.New(&hclog.LoggerOptions{
		Name:  "sheet",
		Level: hclog.Info,
	})

	root := &cobra.Command{
		Use:           "sheet",
		Short:         "inspect and convert spreadsheet-like tabular files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&language, "language", "r", "target language for imported formulas (r or python)")
	root.PersistentFlags().StringVar(&anchor, "anchor", "A1", "anchor address for delimited imports")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "include empty cells in output")

	inspect := &cobra.Command{
		Use:   "inspect <file>",
		Short: "print cells, translations, dependencies and calculation order",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}

	convert := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "convert between csv, tsv and xlsx",
		Args:  cobra.ExactArgs(2),
		RunE:  runConvert,
	}

	root.AddCommand(inspect, convert)

	if err := root.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
