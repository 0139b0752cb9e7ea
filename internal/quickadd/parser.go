// Package quickadd parses the one-line task syntax:
//
//	buy milk #home !p2 @tomorrow
//
// Priority is !p1..!p3, the date is @today, @tomorrow, @nextweek (or the
// Korean 오늘, 내일, 다음주) or @YYYY-MM-DD, and every #word becomes a tag.
// Whatever is left is the title.
package quickadd

import (
	"regexp"
	"slices"
	"strings"

	"github.com/BuzzLyutic/todo-board/internal/model"
)

var (
	priorityToken = regexp.MustCompile(`(?i)!p([123])`)
	dateToken     = regexp.MustCompile(`@((?i:today|tomorrow|nextweek)|오늘|내일|다음주|\d{4}-\d{2}-\d{2})`)
	tagToken      = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
)

// Dates resolves the relative date keywords.
type Dates interface {
	Today() model.Date
	Tomorrow() model.Date
	NextWeek() model.Date
}

type Result struct {
	Title         string
	Priority      *model.Priority
	ScheduledDate model.Date
	// DateGiven is false when no date token was present and ScheduledDate
	// is just today.
	DateGiven bool
	TagNames  []string
}

// Parse extracts priority, then date, then tags. When a token repeats the
// last one wins; tag names keep their first-seen order.
func Parse(raw string, dates Dates) Result {
	res := Result{ScheduledDate: dates.Today()}

	text := priorityToken.ReplaceAllStringFunc(raw, func(tok string) string {
		p := model.Priority("p" + priorityToken.FindStringSubmatch(tok)[1])
		res.Priority = &p
		return ""
	})

	text = dateToken.ReplaceAllStringFunc(text, func(tok string) string {
		d, ok := resolveDate(dateToken.FindStringSubmatch(tok)[1], dates)
		if !ok {
			return tok
		}
		res.ScheduledDate = d
		res.DateGiven = true
		return ""
	})

	text = tagToken.ReplaceAllStringFunc(text, func(tok string) string {
		name := tagToken.FindStringSubmatch(tok)[1]
		if !slices.Contains(res.TagNames, name) {
			res.TagNames = append(res.TagNames, name)
		}
		return ""
	})

	res.Title = strings.Join(strings.Fields(text), " ")
	return res
}

func resolveDate(word string, dates Dates) (model.Date, bool) {
	switch strings.ToLower(word) {
	case "today", "오늘":
		return dates.Today(), true
	case "tomorrow", "내일":
		return dates.Tomorrow(), true
	case "nextweek", "다음주":
		return dates.NextWeek(), true
	}
	d, err := model.ParseDate(word)
	if err != nil {
		return "", false
	}
	return d, true
}
