package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
// 状态机转换前会重读实体并按 version 条件更新，竞争失败方收到该错误
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
