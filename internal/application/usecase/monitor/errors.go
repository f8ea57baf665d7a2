package monitor

import "errors"

var (
	// ErrNotStarted 控制器尚未 Start
	ErrNotStarted = errors.New("controller not started")
	// ErrAlreadyStarted Start 只能调用一次
	ErrAlreadyStarted = errors.New("controller already started")
	// ErrClosed 控制器已关闭
	ErrClosed = errors.New("controller closed")
)
