package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/stelp/stelp/internal/record"
)

var (
	combinedLogRegex = regexp.MustCompile(`^(\S+) (\S+) (\S+) \[([^\]]+)\] "([^"]*)" (\d+) (\S+) "([^"]*)" "([^"]*)"$`)
	commonLogRegex   = regexp.MustCompile(`^(\S+) (\S+) (\S+) \[([^\]]+)\] "([^"]*)" (\d+) (\S+)$`)
)

// WeblogParser recognizes Apache/nginx Combined Log Format, falling back to
// Common Log Format.
type WeblogParser struct{}

func NewWeblogParser() *WeblogParser { return &WeblogParser{} }

// parseRequest splits a request line ("GET /path HTTP/1.1") into up to
// three parts; any trailing parts are folded into the third component.
func parseRequest(request string) (method, path, proto string) {
	parts := strings.SplitN(request, " ", 3)
	switch len(parts) {
	case 3:
		return parts[0], parts[1], parts[2]
	case 2:
		return parts[0], parts[1], ""
	case 1:
		return parts[0], "", ""
	}
	return "", "", ""
}

func (p *WeblogParser) ParseLine(line string) (record.Value, error) {
	line = strings.TrimSpace(line)

	if m := combinedLogRegex.FindStringSubmatch(line); m != nil {
		return buildWeblogRecord(m, true), nil
	}
	if m := commonLogRegex.FindStringSubmatch(line); m != nil {
		return buildWeblogRecord(m, false), nil
	}
	return record.Value{}, fmt.Errorf("line does not match Combined or Common Log Format")
}

func buildWeblogRecord(m []string, hasRefererUA bool) record.Value {
	ip, ident, user, timestamp, request, status, size := m[1], m[2], m[3], m[4], m[5], m[6], m[7]
	method, path, proto := parseRequest(request)

	out := record.NewMap()
	out.Set("ip", record.String(ip))
	if ident != "-" {
		out.Set("ident", record.String(ident))
	}
	if user != "-" {
		out.Set("user", record.String(user))
	}
	out.Set("ts", record.String(timestamp))
	out.Set("req", record.String(request))
	if method != "" {
		out.Set("method", record.String(method))
	}
	if path != "" {
		out.Set("path", record.String(path))
	}
	if proto != "" {
		out.Set("proto", record.String(proto))
	}
	if statusNum, err := strconv.ParseUint(status, 10, 32); err == nil {
		out.Set("status", record.Int(int64(statusNum)))
	} else {
		out.Set("status", record.String(status))
	}
	if size != "-" {
		if sizeNum, err := strconv.ParseUint(size, 10, 64); err == nil {
			out.Set("size", record.Int(int64(sizeNum)))
		} else {
			out.Set("size", record.String(size))
		}
	}
	if hasRefererUA {
		referer, ua := m[8], m[9]
		if referer != "-" {
			out.Set("referer", record.String(referer))
		}
		if ua != "-" {
			out.Set("ua", record.String(ua))
		}
	}
	return record.FromMap(out)
}
