package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/rupeeflow/internal/analytics"
	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/model"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// monthParam reads ?month=YYYY-MM, defaulting to the current month.
func (s *Server) monthParam(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return s.today(), nil
	}
	return s.parseMonth(raw)
}

func (s *Server) parseMonth(raw string) (time.Time, error) {
	m, err := time.ParseInLocation(monthLayout, raw, s.loc)
	if err != nil {
		return time.Time{}, common.NewUserError("Month must look like 2024-05.", fmt.Errorf("%w: month %q", common.ErrInvalidInput, raw))
	}
	return m, nil
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func (s *Server) parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.ParseInLocation(dateLayout, raw, s.loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, common.NewUserError("Dates must look like 2024-05-31.", fmt.Errorf("%w: date %q", common.ErrInvalidInput, raw))
	}
	return t.In(s.loc), nil
}

// criteriaParams reads the type and category criteria shared by the list
// and the report endpoints. Missing values mean "all".
func criteriaParams(r *http.Request) (analytics.Filter, error) {
	q := r.URL.Query()
	f := analytics.Filter{Type: model.FilterAll, Category: model.FilterAll}

	if v := q.Get("type"); v != "" && v != model.FilterAll {
		typ, err := model.ParseTransactionType(v)
		if err != nil {
			return f, err
		}
		f.Type = string(typ)
	}
	if v := q.Get("category"); v != "" && v != model.FilterAll {
		c, err := model.ParseCategory(v)
		if err != nil {
			return f, err
		}
		f.Category = string(c)
	}
	return f, nil
}

// filterParams maps list query parameters onto an analytics.Filter. A month
// parameter fills in whichever date bound is missing.
func (s *Server) filterParams(r *http.Request) (analytics.Filter, error) {
	q := r.URL.Query()
	f, err := criteriaParams(r)
	if err != nil {
		return f, err
	}
	f.Query = q.Get("q")

	for _, bound := range []struct {
		dst **time.Time
		key string
	}{{&f.Start, "start"}, {&f.End, "end"}} {
		if v := q.Get(bound.key); v != "" {
			t, err := s.parseDate(v)
			if err != nil {
				return f, err
			}
			*bound.dst = &t
		}
	}

	if v := q.Get("month"); v != "" {
		m, err := s.parseMonth(v)
		if err != nil {
			return f, err
		}
		w := analytics.MonthWindow(m)
		if f.Start == nil {
			f.Start = &w.Start
		}
		if f.End == nil {
			f.End = &w.End
		}
	}
	return f, nil
}

// yearParam reads ?year=, defaulting to the current year.
func (s *Server) yearParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return s.today().Year(), nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 9999 {
		return 0, common.NewUserError("Year must be a four digit number.", fmt.Errorf("%w: year %q", common.ErrInvalidInput, raw))
	}
	return year, nil
}
