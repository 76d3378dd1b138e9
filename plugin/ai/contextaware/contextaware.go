// Package contextaware supplies the current environmental context (date,
// time, weekday, notable holidays) used by the initiative generator to make
// openers feel timely.
package contextaware

import (
	"fmt"
	"time"
)

// Context describes the current moment in prompt-ready form.
type Context struct {
	ContextStr string
	Holiday    string
	Timestamp  int64
}

// Awareness resolves the current context in a fixed location.
type Awareness struct {
	location *time.Location

	now func() time.Time
}

// New creates an Awareness for the given IANA timezone name. An unknown or
// empty name falls back to Asia/Shanghai, then to the local zone.
func New(timezone string) *Awareness {
	if timezone == "" {
		timezone = "Asia/Shanghai"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.Local
	}
	return &Awareness{
		location: loc,
		now:      time.Now,
	}
}

var weekdayNames = map[time.Weekday]string{
	time.Monday:    "周一",
	time.Tuesday:   "周二",
	time.Wednesday: "周三",
	time.Thursday:  "周四",
	time.Friday:    "周五",
	time.Saturday:  "周六",
	time.Sunday:    "周日",
}

var solarHolidays = map[[2]int]string{
	{1, 1}:   "元旦",
	{2, 14}:  "情人节",
	{3, 8}:   "妇女节",
	{5, 20}:  "520网络情人节",
	{5, 21}:  "521网络情人节",
	{10, 1}:  "国庆节",
	{11, 11}: "光棍节/购物节",
	{12, 24}: "平安夜",
	{12, 25}: "圣诞节",
}

// Current returns the context for right now.
func (a *Awareness) Current() *Context {
	now := a.now().In(a.location)
	weekday := weekdayNames[now.Weekday()]

	holiday := holidayOf(now)

	contextStr := fmt.Sprintf("现在是%s %s %s",
		now.Format("2006-01-02"), now.Format("15:04"), weekday)
	if holiday != "" {
		contextStr += fmt.Sprintf("，今天是%s", holiday)
	}

	return &Context{
		ContextStr: contextStr,
		Holiday:    holiday,
		Timestamp:  now.Unix(),
	}
}

func holidayOf(now time.Time) string {
	if name, ok := solarHolidays[[2]int{int(now.Month()), now.Day()}]; ok {
		return name
	}
	switch now.Weekday() {
	case time.Thursday:
		return "疯狂星期四 (V我50)"
	case time.Saturday, time.Sunday:
		return "周末"
	}
	return ""
}
