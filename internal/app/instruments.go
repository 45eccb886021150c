package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"market-stats/internal/model"
)

// ParseInstruments parses "SYM:Label,SYM2" into instruments. Symbols may
// contain '=' (futures such as GC=F), so the label separator is ':'.
func ParseInstruments(s string) []model.Instrument {
	var out []model.Instrument
	for _, part := range strings.Split(s, ",") {
		out = append(out, parseInstrumentLine(part))
	}
	return dedupInstruments(out)
}

func parseInstrumentLine(s string) model.Instrument {
	sym, label, _ := strings.Cut(s, ":")
	return model.Instrument{Symbol: sym, Label: strings.TrimSpace(label)}
}

// LoadInstrumentsFromFile reads instruments from a file.
// Supported formats:
//   - .txt  : one "SYMBOL" or "SYMBOL:Label" per line, '#' lines are comments
//   - .json : array of {"symbol","label"} objects or of plain symbols
//   - .yaml : list of {symbol, label}, an "instruments:" key holding that list,
//     or a mapping SYMBOL -> label / {label: ...}
func LoadInstrumentsFromFile(path string) ([]model.Instrument, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file %s: %w", path, err)
	}

	var list []model.Instrument
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		list, err = parseInstrumentsJSON(content)
	case ".yaml", ".yml":
		list, err = parseInstrumentsYAML(content)
	case ".txt":
		for _, line := range strings.Split(string(content), "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "#") {
				list = append(list, parseInstrumentLine(line))
			}
		}
	default:
		return nil, fmt.Errorf("unsupported instruments file extension %q (use .txt, .json or .yaml)", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	list = dedupInstruments(list)
	slog.Info("loaded instruments from file", "count", len(list), "path", path)
	return list, nil
}

func parseInstrumentsJSON(data []byte) ([]model.Instrument, error) {
	var list []model.Instrument
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var symbols []string
	if err := json.Unmarshal(data, &symbols); err != nil {
		return nil, err
	}
	for _, s := range symbols {
		list = append(list, model.Instrument{Symbol: s})
	}
	return list, nil
}

func parseInstrumentsYAML(data []byte) ([]model.Instrument, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.MappingNode {
		if len(root.Content) == 2 && root.Content[0].Value == "instruments" {
			root = root.Content[1]
		} else {
			// Mapping keeps file order, which a Go map would lose.
			var list []model.Instrument
			for i := 0; i+1 < len(root.Content); i += 2 {
				inst := model.Instrument{Symbol: root.Content[i].Value}
				v := root.Content[i+1]
				if v.Kind == yaml.ScalarNode {
					inst.Label = v.Value
				} else {
					var body struct {
						Label string `yaml:"label"`
					}
					if err := v.Decode(&body); err != nil {
						return nil, fmt.Errorf("instrument %s: %w", inst.Symbol, err)
					}
					inst.Label = body.Label
				}
				list = append(list, inst)
			}
			return list, nil
		}
	}
	var list []model.Instrument
	if err := root.Decode(&list); err != nil {
		return nil, err
	}
	return list, nil
}

// dedupInstruments trims and upper-cases symbols, dropping empty and repeated ones.
func dedupInstruments(in []model.Instrument) []model.Instrument {
	seen := make(map[string]bool)
	var out []model.Instrument
	for _, inst := range in {
		inst.Symbol = strings.ToUpper(strings.TrimSpace(inst.Symbol))
		inst.Label = strings.TrimSpace(inst.Label)
		if inst.Symbol != "" && !seen[inst.Symbol] {
			seen[inst.Symbol] = true
			out = append(out, inst)
		}
	}
	return out
}
