package rounds

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
	"github.com/zkpoex/disclosure/pkg/errorcode"
)

// DefaultDuration is the disclosure delay used when none is given.
const DefaultDuration = "90d"

const (
	day   = 24 * time.Hour
	month = 2_630_016 * time.Second  // 30.44 days
	year  = 31_557_600 * time.Second // 365.25 days
)

var durationUnits = map[string]time.Duration{
	"nsec": time.Nanosecond, "ns": time.Nanosecond,
	"usec": time.Microsecond, "us": time.Microsecond,
	"msec": time.Millisecond, "ms": time.Millisecond,
	"seconds": time.Second, "second": time.Second, "sec": time.Second, "s": time.Second,
	"minutes": time.Minute, "minute": time.Minute, "min": time.Minute, "m": time.Minute,
	"hours": time.Hour, "hour": time.Hour, "hr": time.Hour, "h": time.Hour,
	"days": day, "day": day, "d": day,
	"weeks": 7 * day, "week": 7 * day, "w": 7 * day,
	"months": month, "month": month, "M": month,
	"years": year, "year": year, "y": year,
}

// ParseDuration parses a human-friendly duration such as "90d", "1y 2w" or "3h30m". Each component is an unsigned
// integer followed by a unit; components may be separated by whitespace.
func ParseDuration(s string) (time.Duration, error) {
	d, err := parseDuration(s)
	if err != nil {
		return 0, errorcode.New(errorcode.ErrorInvalidDuration, errorcode.StageRound, err)
	}

	return d, nil
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("时长为空")
	}

	var total time.Duration
	for len(s) > 0 {
		i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
		if i == 0 {
			return 0, errors.Errorf("期望数字，得到 %q", s)
		}
		if i < 0 {
			return 0, errors.Errorf("数字 %q 缺少单位", s)
		}

		n, err := strconv.ParseUint(s[:i], 10, 63)
		if err != nil {
			return 0, errors.Wrapf(err, "无法解析数字 %q", s[:i])
		}
		s = s[i:]

		j := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
		if j < 0 {
			j = len(s)
		}
		unitName := s[:j]
		s = strings.TrimLeftFunc(s[j:], unicode.IsSpace)

		unit, ok := durationUnits[unitName]
		if !ok {
			return 0, errors.Errorf("未知的时间单位 %q", unitName)
		}

		if n > uint64(math.MaxInt64/int64(unit)) {
			return 0, errors.New("时长溢出")
		}
		component := time.Duration(n) * unit
		if total > math.MaxInt64-component {
			return 0, errors.New("时长溢出")
		}
		total += component
	}

	return total, nil
}
