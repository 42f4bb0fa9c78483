package contract

import (
	"fmt"
	"strings"
)

// EventType is the category tag of an event. It is stored by its symbolic
// name.
type EventType string

const (
	TypeGeneric          EventType = "GENERIC"
	TypeAssignment       EventType = "ASSIGNMENT"
	TypeClass            EventType = "CLASS"
	TypeLab              EventType = "LAB"
	TypeExam             EventType = "EXAM"
	TypeEssay            EventType = "ESSAY"
	TypeProgramming      EventType = "PROGRAMMING"
	TypeReading          EventType = "READING"
	TypeClub             EventType = "CLUB"
	TypeOfficeHours      EventType = "OFFICE_HOURS"
	TypeAthleticPractice EventType = "ATHLETIC_PRACTICE"
	TypeMusicPractice    EventType = "MUSIC_PRACTICE"
	TypeCompetition      EventType = "COMPETITION"
	TypePresentation     EventType = "PRESENTATION"
	TypeHoliday          EventType = "HOLIDAY"
)

type eventTypeInfo struct {
	label string
	icon  string
}

var eventTypeOrder = []EventType{
	TypeGeneric,
	TypeAssignment,
	TypeClass,
	TypeLab,
	TypeExam,
	TypeEssay,
	TypeProgramming,
	TypeReading,
	TypeClub,
	TypeOfficeHours,
	TypeAthleticPractice,
	TypeMusicPractice,
	TypeCompetition,
	TypePresentation,
	TypeHoliday,
}

var eventTypeInfos = map[EventType]eventTypeInfo{
	TypeGeneric:          {label: "Event", icon: "event"},
	TypeAssignment:       {label: "Assignment", icon: "assignment"},
	TypeClass:            {label: "Class", icon: "school"},
	TypeLab:              {label: "Lab", icon: "science"},
	TypeExam:             {label: "Exam", icon: "quiz"},
	TypeEssay:            {label: "Essay", icon: "essay"},
	TypeProgramming:      {label: "Programming", icon: "code"},
	TypeReading:          {label: "Reading", icon: "book"},
	TypeClub:             {label: "Club", icon: "groups"},
	TypeOfficeHours:      {label: "Office Hours", icon: "meeting_room"},
	TypeAthleticPractice: {label: "Athletic Practice", icon: "sports_soccer"},
	TypeMusicPractice:    {label: "Music Practice", icon: "music_note"},
	TypeCompetition:      {label: "Competition", icon: "trophy"},
	TypePresentation:     {label: "Presentation", icon: "present"},
	TypeHoliday:          {label: "Holiday", icon: "holiday"},
}

// EventTypes lists every category in display order.
func EventTypes() []EventType {
	out := make([]EventType, len(eventTypeOrder))
	copy(out, eventTypeOrder)
	return out
}

func (t EventType) Valid() bool {
	_, ok := eventTypeInfos[t]
	return ok
}

// Label is the human-readable name, e.g. "Office Hours".
func (t EventType) Label() string {
	if info, ok := eventTypeInfos[t]; ok {
		return info.label
	}
	return string(t)
}

// Icon is the icon resource name shown next to events of this type.
func (t EventType) Icon() string {
	if info, ok := eventTypeInfos[t]; ok {
		return info.icon
	}
	return eventTypeInfos[TypeGeneric].icon
}

func (t EventType) String() string { return string(t) }

// ParseEventType accepts symbolic names case-insensitively, with '-' or ' '
// standing in for '_'.
func ParseEventType(v string) (EventType, error) {
	s := strings.ToUpper(strings.TrimSpace(v))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	t := EventType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown event type: %s", v)
	}
	return t, nil
}

// EventTypeRow is the tabular form used by the types listing.
type EventTypeRow struct {
	Name  EventType `json:"name"`
	Label string    `json:"label"`
	Icon  string    `json:"icon"`
}

func EventTypeRows() []EventTypeRow {
	rows := make([]EventTypeRow, 0, len(eventTypeOrder))
	for _, t := range eventTypeOrder {
		rows = append(rows, EventTypeRow{Name: t, Label: t.Label(), Icon: t.Icon()})
	}
	return rows
}
