package lib

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/buger/goterm"
	"github.com/mattn/go-isatty"
)

type LoggerStruct struct {
	Print    func(args ...any)
	Flush    func()
	disabled bool
	colored  bool
}

var Logger = &LoggerStruct{
	Print: func(args ...any) {
		fmt.Fprint(os.Stderr, args...)
	},
	Flush:    func() {},
	disabled: strings.ToLower(os.Getenv("LOGGING")+" ")[:1] == "n",
	colored:  isatty.IsTerminal(os.Stderr.Fd()) && strings.ToLower(os.Getenv("COLORS")+" ")[:1] != "n",
}

func caller(depth int) string {
	_, file, line, _ := runtime.Caller(depth)
	parts := strings.Split(file, "/")
	keep := []string{
		parts[len(parts)-2],
		parts[len(parts)-1],
	}
	file = strings.Join(keep, "/")
	return fmt.Sprintf("%s:%d: ", file, line)
}

func (l *LoggerStruct) colorize(s string, color int) string {
	if !l.colored {
		return s
	}
	return goterm.Color(s, color)
}

func (l *LoggerStruct) Println(v ...any) {
	if !l.disabled {
		var r []any
		r = append(r, caller(2))
		var xs []string
		for _, x := range v {
			xs = append(xs, fmt.Sprint(x))
		}
		r = append(r, strings.Join(xs, " "))
		r = append(r, "\n")
		l.Print(r...)
	}
}

func (l *LoggerStruct) Printf(format string, v ...any) {
	if !l.disabled {
		l.Print(fmt.Sprintf(caller(2)+format, v...))
	}
}

func (l *LoggerStruct) status(color int, prefix string, v ...any) {
	if !l.disabled {
		var xs []string
		xs = append(xs, l.colorize(prefix, color))
		for _, x := range v {
			xs = append(xs, fmt.Sprint(x))
		}
		l.Print(caller(3), strings.Join(xs, " "), "\n")
	}
}

func (l *LoggerStruct) Info(v ...any) {
	l.status(goterm.CYAN, "info:", v...)
}

func (l *LoggerStruct) Success(v ...any) {
	l.status(goterm.GREEN, "success:", v...)
}

func (l *LoggerStruct) Warning(v ...any) {
	l.status(goterm.YELLOW, "warning:", v...)
}

func (l *LoggerStruct) Error(v ...any) {
	l.status(goterm.RED, "error:", v...)
}

func (l *LoggerStruct) Fatal(v ...any) {
	var r []any
	r = append(r, caller(2))
	var xs []string
	for _, x := range v {
		xs = append(xs, fmt.Sprint(x))
	}
	r = append(r, l.colorize(strings.Join(xs, " "), goterm.RED))
	r = append(r, "\n")
	l.Print(r...)
	l.Flush()
	os.Exit(1)
}

func (l *LoggerStruct) Fatalf(format string, v ...any) {
	l.Print(l.colorize(fmt.Sprintf(caller(2)+format, v...), goterm.RED))
	l.Flush()
	os.Exit(1)
}
