package lib

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode"

	"github.com/avast/retry-go"
)

var Commands = make(map[string]func())

var Args = make(map[string]any)

var doDebug = os.Getenv("DEBUG") != ""

type Debug struct {
	start time.Time
	name  string
}

func (d *Debug) Log() {
	Logger.Println("debug:", d.name, time.Since(d.start))
}

func Retry(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.Attempts(6),
		retry.Delay(150*time.Millisecond),
	)
}

func PreviewString(preview bool) string {
	if !preview {
		return ""
	}
	return "preview: "
}

func Pformat(i any) string {
	val, err := json.MarshalIndent(i, "", "    ")
	if err != nil {
		panic(err)
	}
	return string(val)
}

func Contains(parts []string, part string) bool {
	for _, p := range parts {
		if p == part {
			return true
		}
	}
	return false
}

func Last(parts []string) string {
	return parts[len(parts)-1]
}

func SplitOnce(x string, sep string) (string, string, error) {
	parts := strings.SplitN(x, sep, 2)
	if len(parts) == 2 {
		return parts[0], parts[1], nil
	}
	return "", "", fmt.Errorf("cannot split once on %q: %s", sep, x)
}

func IsDigit(s string) bool {
	for _, c := range s {
		if !unicode.IsDigit(c) {
			return false
		}
	}
	return len(s) != 0
}

func Exists(pth string) bool {
	_, err := os.Stat(pth)
	return err == nil
}

func shellAt(dir string, format string, args ...any) error {
	str := fmt.Sprintf(format, args...)
	cmd := exec.Command("bash", "-c", str)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// ConfirmProceed prints the teardown plan then reads stdin, proceeding
// only on a case-insensitive "yes".
func ConfirmProceed(plan []string) (bool, error) {
	fmt.Fprintln(os.Stderr, "going to delete:")
	for _, line := range plan {
		fmt.Fprintln(os.Stderr, "  "+line)
	}
	fmt.Fprint(os.Stderr, "proceed? (yes/no): ")
	return confirmRead(os.Stdin)
}

func confirmRead(r io.Reader) (bool, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(line), "yes"), nil
}
