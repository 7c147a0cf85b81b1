// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package xmlinfo does the one XPath-style lookup get-sounds needs against
// soundbanksinfo.xml: walk down to the third top-level child and collect
// every <File> entry matching a language and a basename substring. This is a
// trivial linear scan, not a general XML query layer, so it is built
// directly on encoding/xml rather than pulling in an XPath library.
package xmlinfo

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// Result is one matching File entry.
type Result struct {
	ID        string
	ShortName string
}

// node is a generic XML tree node used to walk an unknown-shape document
// down to "the third child of the root", as soundbanksinfo.xml is addressed.
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   string     `xml:",innerxml"`
	Nodes   []node     `xml:",any"`
}

func attr(n node, name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func childText(n node, name string) (string, bool) {
	for _, c := range n.Nodes {
		if c.XMLName.Local == name {
			return strings.TrimSpace(stripTags(c.Inner)), true
		}
	}
	return "", false
}

func stripTags(s string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Lookup parses path and returns every File entry under the root's third
// child element whose Language attribute equals sfxType and whose
// ShortName (basename, after the last backslash) contains substring.
func Lookup(path, sfxType, substring string) ([]Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("xmlinfo: open: %w", err)
	}
	defer f.Close()

	var root node
	if err := xml.NewDecoder(f).Decode(&root); err != nil {
		return nil, fmt.Errorf("xmlinfo: decode: %w", err)
	}
	if len(root.Nodes) < 3 {
		return nil, fmt.Errorf("xmlinfo: %s has fewer than three top-level sections", path)
	}

	var results []Result
	collectFiles(root.Nodes[2], sfxType, substring, &results)
	return results, nil
}

func collectFiles(n node, sfxType, substring string, out *[]Result) {
	if n.XMLName.Local == "File" && attr(n, "Language") == sfxType {
		if shortName, ok := childText(n, "ShortName"); ok {
			base := shortName
			if i := strings.LastIndexByte(base, '\\'); i >= 0 {
				base = base[i+1:]
			}
			if strings.Contains(base, substring) {
				*out = append(*out, Result{ID: attr(n, "Id"), ShortName: shortName})
			}
		}
	}
	for _, c := range n.Nodes {
		collectFiles(c, sfxType, substring, out)
	}
}
