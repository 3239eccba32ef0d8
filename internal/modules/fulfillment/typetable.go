package fulfillment

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/docfill-backend/internal/domain/fill"
)

//go:embed typemap.yaml
var defaultTypeMap []byte

type typeMapFile struct {
	Groups []struct {
		Type     string   `yaml:"type"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"groups"`
	Signals []struct {
		Type    string `yaml:"type"`
		Pattern string `yaml:"pattern"`
	} `yaml:"signals"`
}

type keywordGroup struct {
	typ      fill.ExpectedType
	keywords []string
}

type contextSignal struct {
	typ fill.ExpectedType
	re  *regexp.Regexp
}

// TypeTable maps placeholder names to expected types. It is immutable after
// construction and safe for concurrent use.
type TypeTable struct {
	groups  []keywordGroup
	signals []contextSignal
}

// DefaultTypeTable returns the table compiled from the embedded keyword map.
func DefaultTypeTable() *TypeTable {
	t, err := ParseTypeTable(defaultTypeMap)
	if err != nil {
		panic(fmt.Sprintf("embedded typemap.yaml: %v", err))
	}
	return t
}

// LoadTypeTable reads a YAML keyword map from path, or returns the embedded
// default when path is empty.
func LoadTypeTable(path string) (*TypeTable, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTypeTable(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read type map: %w", err)
	}
	return ParseTypeTable(raw)
}

func ParseTypeTable(raw []byte) (*TypeTable, error) {
	var f typeMapFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse type map: %w", err)
	}
	t := &TypeTable{}
	for i, g := range f.Groups {
		typ, ok := fill.ParseExpectedType(g.Type)
		if !ok {
			return nil, fmt.Errorf("group %d: unknown type %q", i, g.Type)
		}
		var kws []string
		for _, kw := range g.Keywords {
			if n := normalizeWords(kw); n != "" {
				kws = append(kws, n)
			}
		}
		if len(kws) == 0 {
			return nil, fmt.Errorf("group %d (%s): no keywords", i, typ)
		}
		t.groups = append(t.groups, keywordGroup{typ: typ, keywords: kws})
	}
	for i, s := range f.Signals {
		typ, ok := fill.ParseExpectedType(s.Type)
		if !ok {
			return nil, fmt.Errorf("signal %d: unknown type %q", i, s.Type)
		}
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("signal %d (%s): %w", i, typ, err)
		}
		t.signals = append(t.signals, contextSignal{typ: typ, re: re})
	}
	return t, nil
}

// Infer returns the expected type for a placeholder. Name keywords win over
// context signals; free_text is the fallback.
func (t *TypeTable) Infer(name, context string) fill.ExpectedType {
	padded := " " + normalizeWords(name) + " "
	for _, g := range t.groups {
		for _, kw := range g.keywords {
			if strings.Contains(padded, " "+kw+" ") || strings.Contains(padded, " "+kw+"s ") {
				return g.typ
			}
		}
	}
	for _, s := range t.signals {
		if s.re.MatchString(context) {
			return s.typ
		}
	}
	return fill.TypeFreeText
}

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

func normalizeWords(s string) string {
	return strings.TrimSpace(nonWord.ReplaceAllString(strings.ToLower(s), " "))
}
