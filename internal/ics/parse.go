// Package ics turns ICS subscriptions into model.Events for the week view:
// an HTTP fetcher with a disk cache and a VEVENT parser.
package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "timegrid/internal/log"
	"timegrid/internal/model"
)

// propColor is the RFC 7986 COLOR property.
const propColor = ical.ComponentProperty("COLOR")

// Parse decodes an ICS body into events normalized into loc (time.Local when
// nil). VEVENTs that cannot be read are logged and skipped. Recurring events
// contribute their first instance only.
func Parse(feed Feed, body []byte, loc *time.Location) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics: parse %s: %w", feed.ID, err)
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(feed, ve, loc)
		if err != nil {
			appLog.Warn("ics vevent skipped", "id", feed.ID, "reason", err)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "id", feed.ID, "event_count", len(events))
	return events, nil
}

func parseVEvent(feed Feed, ve *ical.VEvent, loc *time.Location) (model.Event, error) {
	ev := model.Event{SourceID: feed.ID}

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return ev, errors.New("missing UID")
	}
	ev.ID = uid.Value

	ev.Title = propValue(ve, ical.ComponentPropertySummary)
	ev.Location = propValue(ve, ical.ComponentPropertyLocation)
	ev.Color = propValue(ve, propColor)
	if cats := propValue(ve, ical.ComponentPropertyCategories); cats != "" {
		ev.Category = strings.TrimSpace(strings.Split(cats, ",")[0])
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return ev, errors.New("missing DTSTART")
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return ev, fmt.Errorf("DTSTART: %w", err)
	}
	ev.AllDay = isDateValue(dtStart)

	end, err := ve.GetEndAt()
	if err != nil {
		end = start
		if ev.AllDay {
			end = start.AddDate(0, 0, 1)
		}
	}

	if ev.AllDay {
		// Dates float: keep the calendar day, place it in the display zone.
		ev.Start = sameDateIn(start, loc)
		ev.End = sameDateIn(end, loc)
	} else {
		ev.Start = start.In(loc)
		ev.End = end.In(loc)
	}

	if rr := ve.GetProperty(ical.ComponentPropertyRrule); rr != nil {
		appLog.Debug("ics recurrence not expanded", "id", feed.ID, "uid", ev.ID, "rrule", rr.Value)
	}
	return ev, nil
}

func propValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return prop.Value
	}
	return ""
}

// isDateValue reports VALUE=DATE or a bare YYYYMMDD value.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func sameDateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
