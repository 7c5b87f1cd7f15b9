package git

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bravo68web/gitkit/pkg/errors"
)

// longDateLayout is the date shape git prints for --date=default.
const longDateLayout = "Mon Jan 2 15:04:05 2006 -0700"

// Signature identifies an author, committer or tagger at a point in time.
type Signature struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	When  time.Time `json:"when"`
}

// ParseSignature parses "Name <email> <when>", where when is either
// "<unix seconds> <±HHMM>" or a long-form date such as
// "Tue Sep 10 16:34:14 2013 +0200".
func ParseSignature(line string) (*Signature, error) {
	line = strings.TrimRight(line, "\r\n")

	open := strings.Index(line, "<")
	closing := strings.Index(line, ">")
	if open < 0 || closing < open {
		return nil, errors.Malformedf("signature %q: expected \"name <email> when\"", line)
	}

	sig := &Signature{
		Name:  strings.TrimSpace(line[:open]),
		Email: line[open+1 : closing],
	}

	rest := line[closing+1:]
	if !strings.HasPrefix(rest, " ") || len(rest) < 2 {
		return nil, errors.Malformedf("signature %q: missing date", line)
	}
	rest = rest[1:]

	var err error
	if rest[0] >= '0' && rest[0] <= '9' {
		sig.When, err = parseEpochWhen(rest)
	} else {
		sig.When, err = time.Parse(longDateLayout, strings.TrimSpace(rest))
	}
	if err != nil {
		return nil, errors.Malformed(fmt.Sprintf("signature %q: bad date", line), err)
	}
	return sig, nil
}

func parseEpochWhen(s string) (time.Time, error) {
	secs, tz, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp %q has no timezone offset", s)
	}
	unix, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	offset, err := parseTimezone(strings.TrimSpace(tz))
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(unix, 0).In(time.FixedZone(strings.TrimSpace(tz), offset)), nil
}

// parseTimezone turns "+0200" into an offset in seconds east of UTC.
func parseTimezone(tz string) (int, error) {
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return 0, fmt.Errorf("invalid timezone %q", tz)
	}
	hours, err := strconv.Atoi(tz[1:3])
	if err != nil {
		return 0, fmt.Errorf("invalid timezone %q", tz)
	}
	minutes, err := strconv.Atoi(tz[3:])
	if err != nil {
		return 0, fmt.Errorf("invalid timezone %q", tz)
	}

	offset := hours*3600 + minutes*60
	if tz[0] == '-' {
		offset = -offset
	}
	return offset, nil
}

// String renders the signature in the epoch form git stores in objects.
func (s *Signature) String() string {
	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Email, s.When.Unix(), s.When.Format("-0700"))
}
