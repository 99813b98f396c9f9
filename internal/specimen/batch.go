package specimen

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/pkdex/core/errors"
	"github.com/FocuswithJustin/pkdex/core/pokedex"
	"github.com/FocuswithJustin/pkdex/core/xml"
	"github.com/FocuswithJustin/pkdex/internal/validation"
)

// Item is one specimen read from a batch, with where it came from.
type Item struct {
	Source string // "<path>:<line>" or "<path>[<index>]"
	Record pokedex.Record
}

// LoadFile reads a batch file, picking the format from its content.
func LoadFile(path string) ([]Item, error) {
	data, err := validation.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	return Load(path, data)
}

// Load decodes a batch held in data. name labels each Item's Source and
// breaks ties when the content alone does not reveal the format.
func Load(name string, data []byte) ([]Item, error) {
	switch t := validation.DetectFileType(data, name); t {
	case validation.FileTypeJSON:
		return loadJSON(name, data)
	case validation.FileTypeXML:
		return loadXML(name, data)
	case validation.FileTypeText:
		return loadText(name, data)
	case validation.FileTypeUnknown:
		return nil, nil
	default:
		return nil, errors.NewUnsupported("batch format", string(t))
	}
}

// loadText reads one expression per line. Blank lines and lines starting
// with '#' are skipped.
func loadText(name string, data []byte) ([]Item, error) {
	var items []Item
	sc := bufio.NewScanner(bytes.NewReader(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})))
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		src := fmt.Sprintf("%s:%d", name, line)
		rec, err := Parse(text)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src, err)
		}
		items = append(items, Item{Source: src, Record: rec})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.NewIO("scan", name, err)
	}
	return items, nil
}

// loadJSON accepts an array of objects or a single object. Keys are the
// expression keys; numbers, strings and booleans are all accepted.
func loadJSON(name string, data []byte) ([]Item, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	var objects []map[string]any
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var one map[string]any
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, &errors.ParseError{Format: "JSON", Path: name, Message: err.Error(), Err: err}
		}
		objects = append(objects, one)
	} else if err := json.Unmarshal(data, &objects); err != nil {
		return nil, &errors.ParseError{Format: "JSON", Path: name, Message: err.Error(), Err: err}
	}

	items := make([]Item, 0, len(objects))
	for i, obj := range objects {
		src := fmt.Sprintf("%s[%d]", name, i)
		pairs, err := jsonPairs(obj)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src, err)
		}
		rec, err := build(pairs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src, err)
		}
		items = append(items, Item{Source: src, Record: rec})
	}
	return items, nil
}

func jsonPairs(obj map[string]any) ([]pair, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]pair, 0, len(keys))
	for _, k := range keys {
		var raw string
		switch v := obj[k].(type) {
		case float64:
			if v != float64(int(v)) {
				return nil, errors.NewValidation(k, fmt.Sprintf("not an integer: %v", v))
			}
			raw = strconv.Itoa(int(v))
		case string:
			raw = v
		case bool:
			raw = strconv.FormatBool(v)
		default:
			return nil, errors.NewValidation(k, fmt.Sprintf("unsupported value %v", v))
		}
		pairs = append(pairs, pair{key: k, value: textValue(raw)})
	}
	return pairs, nil
}

// loadXML reads every <pokemon> element; attributes are the expression
// keys.
func loadXML(name string, data []byte) ([]Item, error) {
	doc, err := xml.Parse(data)
	if err != nil {
		return nil, &errors.ParseError{Format: "XML", Path: name, Message: err.Error(), Err: err}
	}
	nodes, err := doc.XPath("//pokemon")
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(nodes))
	for i, n := range nodes {
		src := fmt.Sprintf("%s[%d]", name, i)
		attrs := n.Attributes()
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]pair, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, pair{key: k, value: textValue(attrs[k])})
		}
		rec, err := build(pairs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src, err)
		}
		items = append(items, Item{Source: src, Record: rec})
	}
	return items, nil
}
