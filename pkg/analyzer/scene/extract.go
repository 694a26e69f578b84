package scene

import (
	"regexp"
	"strconv"
	"strings"
)

// Sentinels of the scene micro-grammar. Lines are matched after trimming
// surrounding whitespace.
const (
	objectHeader    = "GameObject:"
	transformHeader = "Transform:"
	componentPrefix = "- component:"
	namePrefix      = "m_Name:"
	fatherPrefix    = "m_Father:"
	blockTerminator = "--- !u"
)

var (
	componentPattern = regexp.MustCompile(`^- component: \{fileID: (-?\d+)`)
	fatherPattern    = regexp.MustCompile(`^m_Father: \{fileID: (-?\d+)`)
	referencePattern = regexp.MustCompile(`fileID: (-?\d+), guid: ([a-fA-F0-9]+), type: (\d+)`)
)

// scanState is the position of the extractor inside a scene document.
type scanState int

const (
	stateOutside scanState = iota
	stateInObject
	stateInTransform
)

// pendingObject holds what has been captured for the current object block.
type pendingObject struct {
	id            int64
	name          string
	hasID         bool
	hasName       bool
	seenComponent bool
}

// ExtractRecords scans the lines of one scene document and returns one
// Record per object whose transform declares a parseable parent field, in
// document order. Lines that match no sentinel are skipped.
//
// An object block opens at a line equal to "GameObject:". Until its transform
// opens, the first component reference supplies the object's identifier and
// the first name field its display name. An unparseable first component
// leaves the object without an identifier. The first "Transform:" line after
// that opens the transform region, where the parent field completes the
// record. A block terminator closes the transform region; a terminator seen
// before the transform keeps the object pending, since the transform lives in
// the following document.
func ExtractRecords(lines []string) []Record {
	var (
		records []Record
		state   = stateOutside
		obj     pendingObject
	)

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if trimmed == objectHeader {
			state = stateInObject
			obj = pendingObject{}
			continue
		}

		switch state {
		case stateInObject:
			switch {
			case strings.HasPrefix(trimmed, transformHeader):
				state = stateInTransform
			case !obj.seenComponent && strings.HasPrefix(trimmed, componentPrefix):
				obj.seenComponent = true
				if id, ok := ParseComponentID(trimmed); ok {
					obj.id, obj.hasID = id, true
				}
			case !obj.hasName && strings.HasPrefix(trimmed, namePrefix):
				obj.name, obj.hasName = ParseName(trimmed)
			}

		case stateInTransform:
			switch {
			case strings.HasPrefix(trimmed, blockTerminator):
				state = stateOutside
				obj = pendingObject{}
			case strings.HasPrefix(trimmed, fatherPrefix):
				parent, ok := ParseFatherID(trimmed)
				if ok && obj.hasID {
					records = append(records, Record{ID: obj.id, Name: obj.name, ParentID: parent})
				}
				// One parent field per transform; later ones belong to nested data.
				state = stateOutside
				obj = pendingObject{}
			}
		}
	}

	return records
}

// ParseComponentID extracts the identifier from a trimmed
// "- component: {fileID: N}" line.
func ParseComponentID(trimmed string) (int64, bool) {
	return parseIDField(componentPattern, trimmed)
}

// ParseFatherID extracts the parent identifier from a trimmed
// "m_Father: {fileID: N}" line.
func ParseFatherID(trimmed string) (int64, bool) {
	return parseIDField(fatherPattern, trimmed)
}

// ParseName extracts the display name from a trimmed "m_Name: ..." line: the
// rest of the line after the colon, trimmed.
func ParseName(trimmed string) (string, bool) {
	rest, ok := strings.CutPrefix(trimmed, namePrefix)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

func parseIDField(re *regexp.Regexp, s string) (int64, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ExtractReferences returns every inline (fileID, guid, type) reference in the
// lines, in document order, including several per line.
func ExtractReferences(lines []string) []Reference {
	var refs []Reference
	for _, line := range lines {
		for _, m := range referencePattern.FindAllStringSubmatch(line, -1) {
			ref, ok := parseReference(m)
			if ok {
				refs = append(refs, ref)
			}
		}
	}
	return refs
}

// ParseReference extracts the first inline reference of a line.
func ParseReference(line string) (Reference, bool) {
	m := referencePattern.FindStringSubmatch(line)
	if m == nil {
		return Reference{}, false
	}
	return parseReference(m)
}

func parseReference(m []string) (Reference, bool) {
	localID, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Reference{}, false
	}
	typ, err := strconv.Atoi(m[3])
	if err != nil {
		return Reference{}, false
	}
	return Reference{LocalID: localID, GUID: m[2], Type: typ}, true
}

// ReferencedGUIDs returns the distinct identifiers referenced in the lines,
// lower-cased, in order of first appearance.
func ReferencedGUIDs(lines []string) []string {
	seen := make(map[string]bool)
	var guids []string
	for _, ref := range ExtractReferences(lines) {
		key := strings.ToLower(ref.GUID)
		if seen[key] {
			continue
		}
		seen[key] = true
		guids = append(guids, key)
	}
	return guids
}
