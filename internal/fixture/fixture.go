// Package fixture loads structured seed data into the managed database.
// A fixture document maps table names to ordered row sets, optionally
// partitioned per application under a reserved "self" key.
package fixture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// selfKey marks the current application's tables in a multi-app document.
const selfKey = "self"

// tableOrderKey names the optional explicit insertion order.
const tableOrderKey = "tableOrder"

// Row maps column names to values. Each row stands alone; rows of the
// same table are not required to share a column set.
type Row map[string]any

// AppFixture is one application's seed data.
type AppFixture struct {
	Tables     map[string][]Row
	TableOrder []string
}

// Document is a parsed fixture file: rows for this application plus any
// sub-fixtures destined for other applications' databases.
type Document struct {
	Self   AppFixture
	Others map[string]AppFixture
}

// Parse decodes a fixture document. Without a "self" key the whole
// document belongs to the current application.
func Parse(data []byte) (Document, error) {
	raw, err := decodeObject(data)
	if err != nil {
		return Document{}, fmt.Errorf("parse fixture: %w", err)
	}

	if _, multiApp := raw[selfKey]; !multiApp {
		app, err := parseApp(raw)
		if err != nil {
			return Document{}, err
		}
		return Document{Self: app, Others: map[string]AppFixture{}}, nil
	}

	doc := Document{Others: map[string]AppFixture{}}
	for name, sub := range raw {
		subRaw, err := decodeObject(sub)
		if err != nil {
			return Document{}, fmt.Errorf("parse fixture for app %q: %w", name, err)
		}
		app, err := parseApp(subRaw)
		if err != nil {
			return Document{}, fmt.Errorf("app %q: %w", name, err)
		}
		if name == selfKey {
			doc.Self = app
		} else {
			doc.Others[name] = app
		}
	}
	return doc, nil
}

func parseApp(raw map[string]json.RawMessage) (AppFixture, error) {
	app := AppFixture{Tables: map[string][]Row{}}
	for key, val := range raw {
		if key == tableOrderKey {
			if err := json.Unmarshal(val, &app.TableOrder); err != nil {
				return AppFixture{}, fmt.Errorf("tableOrder: %w", err)
			}
			continue
		}
		rows, err := decodeRows(val)
		if err != nil {
			return AppFixture{}, fmt.Errorf("table %q: %w", key, err)
		}
		app.Tables[key] = rows
	}
	return app, nil
}

// installOrder is the explicit table order when given, else table names
// sorted for determinism.
func (a AppFixture) installOrder() []string {
	if len(a.TableOrder) > 0 {
		return a.TableOrder
	}
	names := make([]string, 0, len(a.Tables))
	for name := range a.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// marshal re-encodes an app fixture into its document form, used when
// handing a foreign app's fixture back to the operator.
func (a AppFixture) marshal() ([]byte, error) {
	out := make(map[string]any, len(a.Tables)+1)
	for name, rows := range a.Tables {
		out[name] = rows
	}
	if len(a.TableOrder) > 0 {
		out[tableOrderKey] = a.TableOrder
	}
	return json.MarshalIndent(out, "", "  ")
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// decodeRows keeps numbers as json.Number so numeric literals reach the
// driver without float rounding.
func decodeRows(data []byte) ([]Row, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rows []Row
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}
