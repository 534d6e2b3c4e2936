package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/stelp/stelp/internal/record"
)

var (
	rfc5424Regex = regexp.MustCompile(`^<(\d{1,3})>(\d+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(\S+)(?:\s+(.*))?$`)
	rfc3164Regex = regexp.MustCompile(`^(\w{3}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})\s+(\S+)\s+([^:\[\s]+)(?:\[(\d+)\])?\s*:\s*(.*)$`)
)

// SyslogParser recognizes RFC5424 lines, falling back to RFC3164.
type SyslogParser struct{}

func NewSyslogParser() *SyslogParser { return &SyslogParser{} }

func (p *SyslogParser) ParseLine(line string) (record.Value, error) {
	line = strings.TrimSpace(line)

	if m := rfc5424Regex.FindStringSubmatch(line); m != nil {
		priority, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil {
			return record.Value{}, fmt.Errorf("invalid priority value: %s", m[1])
		}
		if priority > 191 {
			return record.Value{}, fmt.Errorf("priority value %d out of range (0-191)", priority)
		}
		facility := priority >> 3
		severity := priority & 7
		timestamp, hostname, appname, procid, msgid := m[3], m[4], m[5], m[6], m[7]
		message := m[9]

		out := record.NewMap()
		out.Set("pri", record.Int(int64(priority)))
		out.Set("facility", record.Int(int64(facility)))
		out.Set("severity", record.Int(int64(severity)))
		out.Set("ts", record.String(timestamp))
		out.Set("host", record.String(hostname))
		if appname != "-" {
			out.Set("prog", record.String(appname))
		}
		if procid != "-" {
			if pid, err := strconv.ParseUint(procid, 10, 32); err == nil {
				out.Set("pid", record.Int(int64(pid)))
			}
		}
		if msgid != "-" {
			out.Set("msgid", record.String(msgid))
		}
		out.Set("msg", record.String(message))
		return record.FromMap(out), nil
	}

	if m := rfc3164Regex.FindStringSubmatch(line); m != nil {
		timestamp, hostname, appname, procid, message := m[1], m[2], m[3], m[4], m[5]

		out := record.NewMap()
		out.Set("ts", record.String(timestamp))
		out.Set("host", record.String(hostname))
		out.Set("prog", record.String(appname))
		if procid != "" {
			if pid, err := strconv.ParseUint(procid, 10, 32); err == nil {
				out.Set("pid", record.Int(int64(pid)))
			}
		}
		out.Set("msg", record.String(message))
		return record.FromMap(out), nil
	}

	return record.Value{}, fmt.Errorf("line does not match RFC5424 or RFC3164 syslog format")
}
