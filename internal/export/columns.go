package export

import "github.com/sandeepkv93/siteops-service/internal/domain"

var AttendanceColumns = []Column[domain.AttendanceRecord]{
	{"ID", func(r domain.AttendanceRecord) string { return id(r.ID) }},
	{"Date", func(r domain.AttendanceRecord) string { return r.Date.String() }},
	{"Worker ID", func(r domain.AttendanceRecord) string { return id(r.WorkerID) }},
	{"Worker", func(r domain.AttendanceRecord) string { return workerName(r.Worker) }},
	{"Site", func(r domain.AttendanceRecord) string { return siteName(r.Site) }},
	{"Status", func(r domain.AttendanceRecord) string { return string(r.Status) }},
	{"Check In", func(r domain.AttendanceRecord) string { return clock(r.CheckIn) }},
	{"Check Out", func(r domain.AttendanceRecord) string { return clock(r.CheckOut) }},
	{"Hours Worked", func(r domain.AttendanceRecord) string { return money(r.HoursWorked) }},
	{"Notes", func(r domain.AttendanceRecord) string { return r.Notes }},
}

var PaymentColumns = []Column[domain.Payment]{
	{"ID", func(r domain.Payment) string { return id(r.ID) }},
	{"Payment Date", func(r domain.Payment) string { return r.PaymentDate.String() }},
	{"Worker ID", func(r domain.Payment) string { return id(r.WorkerID) }},
	{"Worker", func(r domain.Payment) string { return workerName(r.Worker) }},
	{"Amount", func(r domain.Payment) string { return money(r.Amount) }},
	{"Method", func(r domain.Payment) string { return string(r.Method) }},
	{"Type", func(r domain.Payment) string { return string(r.Type) }},
	{"Period Start", func(r domain.Payment) string { return optDate(r.PeriodStart) }},
	{"Period End", func(r domain.Payment) string { return optDate(r.PeriodEnd) }},
	{"Reference", func(r domain.Payment) string { return r.Reference }},
	{"Notes", func(r domain.Payment) string { return r.Notes }},
}

var ExpenseColumns = []Column[domain.Expense]{
	{"ID", func(r domain.Expense) string { return id(r.ID) }},
	{"Expense Date", func(r domain.Expense) string { return r.ExpenseDate.String() }},
	{"Site ID", func(r domain.Expense) string { return optID(r.SiteID) }},
	{"Site", func(r domain.Expense) string { return siteName(r.Site) }},
	{"Category", func(r domain.Expense) string { return r.Category }},
	{"Description", func(r domain.Expense) string { return r.Description }},
	{"Amount", func(r domain.Expense) string { return money(r.Amount) }},
	{"Paid To", func(r domain.Expense) string { return r.PaidTo }},
	{"Payment Method", func(r domain.Expense) string { return r.PaymentMethod }},
}

var OvertimeColumns = []Column[domain.Overtime]{
	{"ID", func(r domain.Overtime) string { return id(r.ID) }},
	{"Date", func(r domain.Overtime) string { return r.Date.String() }},
	{"Worker ID", func(r domain.Overtime) string { return id(r.WorkerID) }},
	{"Worker", func(r domain.Overtime) string { return workerName(r.Worker) }},
	{"Site", func(r domain.Overtime) string { return siteName(r.Site) }},
	{"Hours", func(r domain.Overtime) string { return num(r.Hours) }},
	{"Rate", func(r domain.Overtime) string { return money(r.Rate) }},
	{"Total Amount", func(r domain.Overtime) string { return money(r.TotalAmount) }},
	{"Status", func(r domain.Overtime) string { return string(r.Status) }},
	{"Notes", func(r domain.Overtime) string { return r.Notes }},
}
