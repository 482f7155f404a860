package slurm

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Parser for the `key=value` block format of `scontrol show job|node|reservation`.
//
// Blocks are separated by blank lines.  Within a block, fields are space-separated `Name=value`
// pairs, but values may contain spaces, embedded `=` and `:`, and a very long value (typically
// Command=) may spill onto continuation lines.  Tokenization therefore keys on field *starts* - a
// field name at the start of a line or after whitespace, followed by `=` - rather than splitting
// on whitespace; a value runs to the next field start or end of line.

// Field names as printed by scontrol: AllocNode:Sid, CPUs/Task, ReqB:S:C:T and the like.
var fieldStartRe = regexp.MustCompile(`(?:^|[ \t])([A-Za-z][A-Za-z0-9_:/]*)=`)

// Some scontrol versions end a job block with a lone `Name:value` token (NtasksPerTRES:0).  It is
// not a field; it marks the end of the block.
var trailerRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_:/]*:[^= \t]*$`)

type BlockParser struct {
	source  Source
	cluster string
	fields  FieldMap
	loc     *time.Location
}

func NewBlockParser(source Source, cluster string, fields FieldMap, loc *time.Location) *BlockParser {
	return &BlockParser{source, cluster, fields, loc}
}

func (p *BlockParser) fail(fragment string, err error) error {
	return &ParseError{Source: p.source, Cluster: p.cluster, Fragment: fragment, Err: err}
}

// Parse the complete output of one command invocation.  The format needs lookahead for block
// boundaries and continuation lines, so this takes the whole text, not a stream.
func (p *BlockParser) Parse(text string) ([]RawRecord, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.HasPrefix(trimmed, "No ") {
		// "No jobs in the system", "No reservations in the system", etc.
		return []RawRecord{}, nil
	}

	records := make([]RawRecord, 0)
	for _, block := range splitBlocks(text) {
		rec, err := p.parseBlock(block)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func splitBlocks(text string) [][]string {
	blocks := make([][]string, 0)
	var current []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

func (p *BlockParser) parseBlock(lines []string) (RawRecord, error) {
	// End-of-block trailer quirk first, then continuation folding, then tokenization.
	if n := len(lines); n > 1 && trailerRe.MatchString(strings.TrimSpace(lines[n-1])) {
		lines = lines[:n-1]
	}

	folded := make([]string, 0, len(lines))
	for _, line := range lines {
		loc := fieldStartRe.FindStringIndex(strings.TrimLeft(line, " \t"))
		if loc != nil && loc[0] == 0 {
			folded = append(folded, line)
		} else if len(folded) > 0 {
			// Continuation of the previous value (long Command= with embedded newlines).
			folded[len(folded)-1] += "\n" + line
		} else {
			return nil, p.fail(line, fmt.Errorf("Block starts with a non-field line"))
		}
	}

	out := make(RawRecord)
	for _, line := range folded {
		matches := fieldStartRe.FindAllStringSubmatchIndex(line, -1)
		for i, m := range matches {
			name := line[m[2]:m[3]]
			valEnd := len(line)
			if i+1 < len(matches) {
				valEnd = matches[i+1][0]
			}
			value := strings.TrimRight(line[m[1]:valEnd], " \t")
			tr, known := p.fields[name]
			if !known {
				return nil, p.fail(line[m[2]:valEnd], fmt.Errorf("Unrecognized field %s", name))
			}
			if err := tr.apply(name, value, p.loc, out); err != nil {
				return nil, p.fail(line[m[2]:valEnd], err)
			}
		}
	}
	if len(out) == 0 {
		return nil, p.fail(strings.Join(folded, " "), fmt.Errorf("Block has no recognized fields"))
	}
	return out, nil
}
