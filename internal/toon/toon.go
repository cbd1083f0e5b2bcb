// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Pico-ROS/picoros-typegen/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a generation Report into TOON format.
func Encode(r *model.Report) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("source: %s", encodeValue(r.Source)))

	var typeRows [][]string
	for _, td := range r.Types {
		deps := make([]string, len(td.Deps))
		for i, d := range td.Deps {
			deps[i] = d.String()
		}
		typeRows = append(typeRows, []string{
			td.Name.String(),
			td.Classification.String(),
			td.Hash,
			fmt.Sprintf("%d", len(td.Fields)),
			strings.Join(deps, " "),
		})
	}
	parts = append(parts, formatTabular("types", []string{"name", "class", "hash", "fields", "deps"}, typeRows))

	var serviceRows [][]string
	for _, sd := range r.Services {
		serviceRows = append(serviceRows, []string{
			sd.Name.String(),
			sd.Hash,
			fmt.Sprintf("%d", len(sd.Request.Fields)),
			fmt.Sprintf("%d", len(sd.Response.Fields)),
		})
	}
	parts = append(parts, formatTabular("services", []string{"name", "hash", "request", "response"}, serviceRows))

	var dropRows [][]string
	for _, d := range r.Dropped {
		dropRows = append(dropRows, []string{d.Name, d.Reason})
	}
	parts = append(parts, formatTabular("dropped", []string{"name", "reason"}, dropRows))

	if len(r.Cyclic) > 0 {
		var cycleRows [][]string
		for _, name := range r.Cyclic {
			cycleRows = append(cycleRows, []string{name})
		}
		parts = append(parts, formatTabular("cycles", []string{"name"}, cycleRows))
	}

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	switch {
	case value == "":
		return `""`
	case value != strings.TrimSpace(value), strings.ContainsAny(value, "\n\r\t"):
		return quote(value)
	}
	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}
	if looksNumeric.MatchString(value) {
		return value
	}
	if needsQuoting.MatchString(value) || strings.HasPrefix(value, "-") {
		return quote(value)
	}
	return value
}

func quote(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(value) + `"`
}
