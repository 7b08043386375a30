package service

import "time"

// Clock 时间源抽象
// 引擎所有"现在"判定都经由它获取，测试中以固定时钟替换
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// Now 返回 UTC 当前时间（全系统时间戳统一 UTC）
func (systemClock) Now() time.Time { return time.Now().UTC() }

// NewSystemClock 创建系统时钟
func NewSystemClock() Clock { return systemClock{} }
