package timeslot

import "time"

// nationalHolidays lists Japanese national holidays, including substitute
// holidays (振替休日), keyed by YYYY-MM-DD. The table is static; extend it
// when a new cabinet-office calendar is published.
var nationalHolidays = map[string]string{
	// 2024
	"2024-01-01": "元日",
	"2024-01-08": "成人の日",
	"2024-02-11": "建国記念の日",
	"2024-02-12": "振替休日",
	"2024-02-23": "天皇誕生日",
	"2024-03-20": "春分の日",
	"2024-04-29": "昭和の日",
	"2024-05-03": "憲法記念日",
	"2024-05-04": "みどりの日",
	"2024-05-05": "こどもの日",
	"2024-05-06": "振替休日",
	"2024-07-15": "海の日",
	"2024-08-11": "山の日",
	"2024-08-12": "振替休日",
	"2024-09-16": "敬老の日",
	"2024-09-22": "秋分の日",
	"2024-09-23": "振替休日",
	"2024-10-14": "スポーツの日",
	"2024-11-03": "文化の日",
	"2024-11-04": "振替休日",
	"2024-11-23": "勤労感謝の日",

	// 2025
	"2025-01-01": "元日",
	"2025-01-13": "成人の日",
	"2025-02-11": "建国記念の日",
	"2025-02-23": "天皇誕生日",
	"2025-02-24": "振替休日",
	"2025-03-20": "春分の日",
	"2025-04-29": "昭和の日",
	"2025-05-03": "憲法記念日",
	"2025-05-04": "みどりの日",
	"2025-05-05": "こどもの日",
	"2025-05-06": "振替休日",
	"2025-07-21": "海の日",
	"2025-08-11": "山の日",
	"2025-09-15": "敬老の日",
	"2025-09-23": "秋分の日",
	"2025-10-13": "スポーツの日",
	"2025-11-03": "文化の日",
	"2025-11-23": "勤労感謝の日",
	"2025-11-24": "振替休日",

	// 2026
	"2026-01-01": "元日",
	"2026-01-12": "成人の日",
	"2026-02-11": "建国記念の日",
	"2026-02-23": "天皇誕生日",
	"2026-03-20": "春分の日",
	"2026-04-29": "昭和の日",
	"2026-05-03": "憲法記念日",
	"2026-05-04": "みどりの日",
	"2026-05-05": "こどもの日",
	"2026-05-06": "振替休日",
	"2026-07-20": "海の日",
	"2026-08-11": "山の日",
	"2026-09-21": "敬老の日",
	"2026-09-22": "国民の休日",
	"2026-09-23": "秋分の日",
	"2026-10-12": "スポーツの日",
	"2026-11-03": "文化の日",
	"2026-11-23": "勤労感謝の日",
}

// IsBusinessDay reports whether the date part of t (in JST) is a business
// day: not Saturday, not Sunday, and not a Japanese national holiday.
func IsBusinessDay(t time.Time) bool {
	local := t.In(JST)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	_, holiday := nationalHolidays[local.Format("2006-01-02")]
	return !holiday
}

// HolidayName returns the holiday name for the date part of t, or ""
// when it is not a national holiday.
func HolidayName(t time.Time) string {
	return nationalHolidays[t.In(JST).Format("2006-01-02")]
}

// NextBusinessDay returns the smallest date strictly after t that is a
// business day, skipping over consecutive weekend and holiday blocks.
func NextBusinessDay(t time.Time) time.Time {
	local := t.In(JST)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, JST)

	for {
		day = day.AddDate(0, 0, 1)
		if IsBusinessDay(day) {
			return day
		}
	}
}
