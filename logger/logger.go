package logger

import (
	"log"
	"os"
)

var (
	// Info 正常日志，输出到 stdout (显示为 [info])
	Info *log.Logger

	// Error 错误日志，输出到 stderr (显示为 [err])
	Error *log.Logger

	// debugEnabled 是否输出 debug 日志 (由 LOG_DEBUG 环境变量控制)
	debugEnabled bool
)

func init() {
	// 初始化 Info logger (输出到 stdout)
	Info = log.New(os.Stdout, "", log.LstdFlags)

	// 初始化 Error logger (输出到 stderr)
	Error = log.New(os.Stderr, "", log.LstdFlags)

	debugEnabled = os.Getenv("LOG_DEBUG") == "true"
}

// Println 输出正常日志到 stdout
func Println(v ...interface{}) {
	Info.Println(v...)
}

// Printf 格式化输出正常日志到 stdout
func Printf(format string, v ...interface{}) {
	Info.Printf(format, v...)
}

// Errorln 输出错误日志到 stderr
func Errorln(v ...interface{}) {
	Error.Println(v...)
}

// Errorf 格式化输出错误日志到 stderr
func Errorf(format string, v ...interface{}) {
	Error.Printf(format, v...)
}

// Debugf 输出调试日志 (被拒绝的更新等正常竞争噪音，默认关闭)
func Debugf(format string, v ...interface{}) {
	if debugEnabled {
		Info.Printf("[debug] "+format, v...)
	}
}

// Fatalf 输出致命错误并退出程序
func Fatalf(format string, v ...interface{}) {
	Error.Fatalf(format, v...)
}
