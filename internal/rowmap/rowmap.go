// Package rowmap projects canvas items onto spreadsheet rows.
//
// The projection is pure and total: it depends only on its arguments and
// never fails, whatever shape an item's payload has. Unknown shapes
// degrade to a JSON rendering instead of an error, so one malformed item
// can never abort a sync.
package rowmap

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sheetsync/internal/canvas"
)

// Column layout of the sheet tab. Every row has exactly len(header)
// cells; the first appended row is the header itself.
var header = []string{
	"ID",
	"Type",
	"Name",
	"Subtitle",
	"Field 1",
	"Field 2",
	"Field 3",
	"Field 4",
	"Last Updated",
	"Raw Data",
}

// Checklist entries render one per line as "<mark> <text>".
const (
	markDone = "done"
	markOpen = "open"
)

// Header returns the fixed header row.
func Header() []string {
	out := make([]string, len(header))
	copy(out, header)
	return out
}

// Columns returns the number of columns in the sheet layout.
func Columns() int {
	return len(header)
}

// MapItem renders one canvas item as a spreadsheet row.
//
// The at argument fills the Last Updated column (RFC3339); passing the
// clock in keeps the mapping deterministic for a given input.
func MapItem(item canvas.Item, at time.Time) []string {
	return []string{
		item.ID,
		item.Type.String(),
		item.Name,
		item.Subtitle,
		renderField(item.Data, "field1"),
		renderField(item.Data, "field2"),
		renderField(item.Data, "field3"),
		renderField(item.Data, "field4"),
		at.Format(time.RFC3339),
		rawDataJSON(item.Data),
	}
}

// MapAll renders all items in order. A nil or empty slice maps to an
// empty row set; the header row is not included.
func MapAll(items []canvas.Item, at time.Time) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, MapItem(item, at))
	}
	return rows
}

// renderField renders a single fieldN cell. Absent fields render empty.
func renderField(data map[string]any, key string) string {
	value, ok := data[key]
	if !ok || value == nil {
		return ""
	}

	list, isList := value.([]any)
	if !isList {
		return formatValue(value)
	}
	if len(list) == 0 {
		return ""
	}

	// Composite rendering is chosen by shape, not by field position:
	// checklists carry text/done entries, charts carry label/value
	// entries, entity tags are plain strings. Anything else falls back
	// to JSON.
	if entries, ok := asChecklist(list); ok {
		return renderChecklist(entries)
	}
	if entries, ok := asMetrics(list); ok {
		return renderMetrics(entries)
	}
	if strs, ok := asStrings(list); ok {
		return strings.Join(strs, ", ")
	}
	return formatValue(value)
}

// asChecklist accepts the list when every element is an object with a
// text key.
func asChecklist(list []any) ([]map[string]any, bool) {
	entries := make([]map[string]any, 0, len(list))
	for _, elem := range list {
		m, ok := elem.(map[string]any)
		if !ok {
			return nil, false
		}
		if _, ok := m["text"]; !ok {
			return nil, false
		}
		entries = append(entries, m)
	}
	return entries, true
}

// asMetrics accepts the list when every element is an object with a
// label or value key.
func asMetrics(list []any) ([]map[string]any, bool) {
	entries := make([]map[string]any, 0, len(list))
	for _, elem := range list {
		m, ok := elem.(map[string]any)
		if !ok {
			return nil, false
		}
		_, hasLabel := m["label"]
		_, hasValue := m["value"]
		if !hasLabel && !hasValue {
			return nil, false
		}
		entries = append(entries, m)
	}
	return entries, true
}

func asStrings(list []any) ([]string, bool) {
	strs := make([]string, 0, len(list))
	for _, elem := range list {
		s, ok := elem.(string)
		if !ok {
			return nil, false
		}
		strs = append(strs, s)
	}
	return strs, true
}

func renderChecklist(entries []map[string]any) string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		mark := markOpen
		if done, ok := entry["done"].(bool); ok && done {
			mark = markDone
		}
		lines = append(lines, mark+" "+formatValue(entry["text"]))
	}
	return strings.Join(lines, "\n")
}

func renderMetrics(entries []map[string]any) string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		label := formatValue(entry["label"])
		value := formatValue(entry["value"])
		if value == "" {
			value = "-"
		}
		lines = append(lines, label+": "+value)
	}
	return strings.Join(lines, "\n")
}

// formatValue renders any payload value as cell text. Scalars keep their
// natural form (numbers without a trailing ".0"); composites render as
// compact JSON.
func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}

	data, err := json.Marshal(value)
	if err != nil {
		// Unmarshalable values only occur for payloads built in Go with
		// non-JSON types; render a placeholder rather than failing.
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}

// rawDataJSON serializes the full payload losslessly. A nil payload is
// an empty object so the column is always valid JSON.
func rawDataJSON(data map[string]any) string {
	if data == nil {
		return "{}"
	}
	out, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(out)
}
