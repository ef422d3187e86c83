package bacapp

import (
	"fmt"
	"strconv"
	"strings"
)

// This file implements the ASCII textual forms used
// for human display and config file values. Every Format* function has
// a matching Parse* that recovers an equal in-memory value.

// FormatRecipient renders a Recipient as either "Device(type=T,instance=I)"
// or "Address(net=N,mac=H:H:H,...)".
func FormatRecipient(r Recipient) string {
	switch r.Kind {
	case RecipientDevice:
		return fmt.Sprintf("Device(type=%d,instance=%d)", r.Device.Type, r.Device.Instance)
	case RecipientAddress:
		return fmt.Sprintf("Address(net=%d,mac=%s)", r.Address.Network, formatMac(r.Address.Mac))
	default:
		return ""
	}
}

// ParseRecipient parses the textual form produced by FormatRecipient.
func ParseRecipient(s string) (Recipient, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "Device(") && strings.HasSuffix(s, ")"):
		fields, err := parseFieldList(s[len("Device(") : len(s)-1])
		if err != nil {
			return Recipient{}, err
		}
		typ, err := requireUint(fields, "type")
		if err != nil {
			return Recipient{}, err
		}
		inst, err := requireUint(fields, "instance")
		if err != nil {
			return Recipient{}, err
		}
		return Recipient{Kind: RecipientDevice, Device: ObjectID{Type: uint16(typ), Instance: uint32(inst)}}, nil

	case strings.HasPrefix(s, "Address(") && strings.HasSuffix(s, ")"):
		fields, err := parseFieldList(s[len("Address(") : len(s)-1])
		if err != nil {
			return Recipient{}, err
		}
		net, err := requireUint(fields, "net")
		if err != nil {
			return Recipient{}, err
		}
		macStr, ok := fields["mac"]
		if !ok {
			return Recipient{}, fmt.Errorf("%w: recipient address missing mac", ErrMissingRequiredField)
		}
		mac, err := parseMac(macStr)
		if err != nil {
			return Recipient{}, err
		}
		return Recipient{Kind: RecipientAddress, Address: Address{Network: uint16(net), Mac: mac}}, nil

	default:
		return Recipient{}, fmt.Errorf("%w: unrecognized recipient form %q", ErrInvalidTag, s)
	}
}

func formatMac(mac []byte) string {
	parts := make([]string, len(mac))
	for i, b := range mac {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}

func parseMac(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ":")
	mac := make([]byte, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: mac octet %q", ErrInvalidTag, p)
		}
		mac[i] = byte(v)
	}
	return mac, nil
}

// FormatDestination renders a Destination.3.
func FormatDestination(d Destination) string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString("ValidDays=")
	b.WriteString(formatDayList(d.ValidDays))
	b.WriteString(";FromTime=")
	b.WriteString(formatTimeOfDay(d.FromTime))
	b.WriteString(";ToTime=")
	b.WriteString(formatTimeOfDay(d.ToTime))
	b.WriteString(";Recipient=")
	b.WriteString(FormatRecipient(d.Recipient))
	b.WriteString(";ProcessIdentifier=")
	b.WriteString(strconv.FormatUint(uint64(d.ProcessID), 10))
	b.WriteString(";ConfirmedNotify=")
	b.WriteString(strconv.FormatBool(d.ConfirmedNotify))
	b.WriteString(";Transitions=")
	b.WriteString(formatTransitionList(d.Transitions))
	b.WriteByte(')')
	return b.String()
}

// ParseDestination parses the textual form produced by FormatDestination.
func ParseDestination(s string) (Destination, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return Destination{}, fmt.Errorf("%w: destination must be parenthesized", ErrInvalidTag)
	}
	inner := s[1 : len(s)-1]

	fields := make(map[string]string)
	for _, part := range splitTopLevel(inner, ';') {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return Destination{}, fmt.Errorf("%w: destination field %q", ErrInvalidTag, part)
		}
		fields[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}

	var d Destination
	days, err := requireField(fields, "ValidDays")
	if err != nil {
		return d, err
	}
	d.ValidDays, err = parseDayList(days)
	if err != nil {
		return d, err
	}

	from, err := requireField(fields, "FromTime")
	if err != nil {
		return d, err
	}
	d.FromTime, err = parseTimeOfDay(from)
	if err != nil {
		return d, err
	}

	to, err := requireField(fields, "ToTime")
	if err != nil {
		return d, err
	}
	d.ToTime, err = parseTimeOfDay(to)
	if err != nil {
		return d, err
	}

	recipient, err := requireField(fields, "Recipient")
	if err != nil {
		return d, err
	}
	d.Recipient, err = ParseRecipient(recipient)
	if err != nil {
		return d, err
	}

	pid, err := requireField(fields, "ProcessIdentifier")
	if err != nil {
		return d, err
	}
	pidVal, err := strconv.ParseUint(pid, 10, 32)
	if err != nil {
		return d, fmt.Errorf("%w: process-identifier %q", ErrInvalidTag, pid)
	}
	d.ProcessID = uint32(pidVal)

	confirmed, err := requireField(fields, "ConfirmedNotify")
	if err != nil {
		return d, err
	}
	d.ConfirmedNotify, err = strconv.ParseBool(confirmed)
	if err != nil {
		return d, fmt.Errorf("%w: confirmed-notify %q", ErrInvalidTag, confirmed)
	}

	transitions, err := requireField(fields, "Transitions")
	if err != nil {
		return d, err
	}
	d.Transitions, err = parseTransitionList(transitions)
	if err != nil {
		return d, err
	}

	return d, nil
}

func formatDayList(b BitString) string {
	var days []string
	for i := uint8(0); i < b.BitsUsed; i++ {
		if b.Get(i) {
			days = append(days, strconv.Itoa(int(i)+1))
		}
	}
	return "[" + strings.Join(days, ",") + "]"
}

func parseDayList(s string) (BitString, error) {
	b := NewBitString(7)
	items, err := parseIntList(s)
	if err != nil {
		return b, err
	}
	for _, v := range items {
		if v < 1 || v > 7 {
			return b, fmt.Errorf("%w: valid-days entry %d", ErrValueOutOfRange, v)
		}
		b.Set(uint8(v-1), true)
	}
	return b, nil
}

func formatTransitionList(b BitString) string {
	names := []string{"ToOffnormal", "ToFault", "ToNormal"}
	var out []string
	for i := uint8(0); i < b.BitsUsed && int(i) < len(names); i++ {
		if b.Get(i) {
			out = append(out, names[i])
		}
	}
	return "[" + strings.Join(out, ",") + "]"
}

func parseTransitionList(s string) (BitString, error) {
	b := NewBitString(3)
	names := map[string]uint8{"ToOffnormal": 0, "ToFault": 1, "ToNormal": 2}
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return b, fmt.Errorf("%w: transitions must be bracketed", ErrInvalidTag)
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return b, nil
	}
	for _, item := range strings.Split(inner, ",") {
		name := strings.TrimSpace(item)
		idx, ok := names[name]
		if !ok {
			return b, fmt.Errorf("%w: transition %q", ErrInvalidTag, name)
		}
		b.Set(idx, true)
	}
	return b, nil
}

func parseIntList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("%w: expected bracketed list", ErrInvalidTag)
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return nil, nil
	}
	var out []int
	for _, item := range strings.Split(inner, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(item))
		if err != nil {
			return nil, fmt.Errorf("%w: list entry %q", ErrInvalidTag, item)
		}
		out = append(out, v)
	}
	return out, nil
}

// formatTimeOfDay renders HH:MM:SS.hh, using "*" for a wildcarded field.
func formatTimeOfDay(t Time) string {
	return fmt.Sprintf("%s:%s:%s.%s", formatTimeField(t.Hour), formatTimeField(t.Minute),
		formatTimeField(t.Second), formatTimeField(t.Hundredths))
}

func formatTimeField(v *uint8) string {
	if v == nil {
		return "*"
	}
	return fmt.Sprintf("%02d", *v)
}

func parseTimeOfDay(s string) (Time, error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return Time{}, fmt.Errorf("%w: time of day %q", ErrInvalidTag, s)
	}
	hms := strings.Split(parts[0], ":")
	if len(hms) != 3 {
		return Time{}, fmt.Errorf("%w: time of day %q", ErrInvalidTag, s)
	}
	hour, err := parseTimeFieldStr(hms[0])
	if err != nil {
		return Time{}, err
	}
	minute, err := parseTimeFieldStr(hms[1])
	if err != nil {
		return Time{}, err
	}
	second, err := parseTimeFieldStr(hms[2])
	if err != nil {
		return Time{}, err
	}
	hundredths, err := parseTimeFieldStr(parts[1])
	if err != nil {
		return Time{}, err
	}
	return Time{Hour: hour, Minute: minute, Second: second, Hundredths: hundredths}, nil
}

func parseTimeFieldStr(s string) (*uint8, error) {
	if s == "*" {
		return nil, nil
	}
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: time field %q", ErrInvalidTag, s)
	}
	r := uint8(v)
	return &r, nil
}

// parseFieldList parses a "key=value,key=value" list into a map.
func parseFieldList(s string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, part := range splitTopLevel(s, ',') {
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("%w: field %q", ErrInvalidTag, part)
		}
		fields[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return fields, nil
}

func requireField(fields map[string]string, name string) (string, error) {
	v, ok := fields[name]
	if !ok {
		return "", fmt.Errorf("%w: field %q", ErrMissingRequiredField, name)
	}
	return v, nil
}

func requireUint(fields map[string]string, name string) (uint64, error) {
	s, err := requireField(fields, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: field %q value %q", ErrInvalidTag, name, s)
	}
	return v, nil
}

// splitTopLevel splits s on sep, ignoring separators nested inside
// brackets or parens (so "Recipient=Address(net=1,mac=A)" survives a
// top-level ';' split without breaking on the inner ',').
func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		default:
			if s[i] == sep && depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}
