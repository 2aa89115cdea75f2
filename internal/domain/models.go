package domain

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&User{},
		&LoginEvent{},
		&Site{},
		&Worker{},
		&AttendanceRecord{},
		&MaterialRecord{},
		&DispatchRecord{},
		&Overtime{},
		&Payment{},
		&Expense{},
		&PendingWork{},
		&WorkUpdate{},
		&WorkUpdateAttachment{},
	}
}
