package svc

import "errors"

// ErrNoFeedSource 错误：配置的数据源没有注册
var ErrNoFeedSource = errors.New("feed source not registered")

// ErrStorageInitFailed 错误：存储初始化失败
var ErrStorageInitFailed = errors.New("storage initialization failed")
