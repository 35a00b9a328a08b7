package schedule

// Validate checks a weekly schedule for internal consistency and returns
// every violation found. An empty result means the schedule is usable.
func Validate(slots []WeeklySessionSlot) ValidationErrors {
	errs := ValidationErrors{}
	if len(slots) == 0 {
		return append(errs, ValidationError{Slot: -1, Message: MsgEmptySchedule})
	}

	days := make([]Weekday, len(slots))
	for i, s := range slots {
		if w, err := ParseWeekday(string(s.Weekday)); err == nil {
			days[i] = w
		} else {
			errs = append(errs, ValidationError{Slot: i, Message: MsgMissingWeekday})
		}
		start, serr := s.StartTime.Minutes()
		end, eerr := s.EndTime.Minutes()
		if serr != nil || eerr != nil {
			errs = append(errs, ValidationError{Slot: i, Message: MsgInvalidTime})
			continue
		}
		if end <= start {
			errs = append(errs, ValidationError{Slot: i, Message: MsgEndBeforeStart})
		}
	}

	seen := make(map[Weekday]struct{}, len(slots))
	for i, w := range days {
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			errs = append(errs, ValidationError{Slot: i, Message: MsgDuplicateDay})
			continue
		}
		seen[w] = struct{}{}
	}
	return errs
}
