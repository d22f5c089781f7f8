package lib

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	for name, content := range files {
		pth := filepath.Join(root, name)
		err := os.MkdirAll(filepath.Dir(pth), 0755)
		if err != nil {
			panic(err)
		}
		err = os.WriteFile(pth, []byte(content), 0644)
		if err != nil {
			panic(err)
		}
	}
}

func TestZipDir(t *testing.T) {
	dir := t.TempDir()
	scratch := filepath.Join(dir, "scratch")
	writeTree(t, scratch, map[string]string{
		"lambda_handler.py": "def lambda_handler(event, context):\n    return {}\n",
		"pydantic_core/_pydantic_core.cpython-311-x86_64-linux-gnu.so": "\x7fELF",
		"tools/search.py": "def search():\n    pass\n",
	})
	zipPath := filepath.Join(dir, "out.zip")
	err := zipDir(scratch, zipPath)
	if err != nil {
		t.Error(err)
		return
	}
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Error(err)
		return
	}
	defer func() {
		_ = r.Close()
	}()
	got := map[string]string{}
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Error(err)
			return
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Error(err)
			return
		}
		got[f.Name] = string(data)
	}
	want := map[string]string{
		"lambda_handler.py": "def lambda_handler(event, context):\n    return {}\n",
		"pydantic_core/_pydantic_core.cpython-311-x86_64-linux-gnu.so": "\x7fELF",
		"tools/search.py": "def search():\n    pass\n",
	}
	if len(got) != len(want) {
		t.Errorf("\ngot: %d entries want: %d", len(got), len(want))
		return
	}
	for name, content := range want {
		if got[name] != content {
			t.Errorf("\n%s\ngot:\n%s\nwant:\n%s\n", name, got[name], content)
			return
		}
	}
}

func TestBundleCheckNative(t *testing.T) {
	scratch := t.TempDir()
	writeTree(t, scratch, map[string]string{
		"pydantic_core/_pydantic_core.cpython-311-x86_64-linux-gnu.so": "\x7fELF",
	})
	err := bundleCheckNative(scratch, []string{"pydantic_core/_pydantic_core*"}, "x86_64-manylinux2014")
	if err != nil {
		t.Error(err)
		return
	}
	err = bundleCheckNative(scratch, []string{"numpy/core/_multiarray*"}, "x86_64-manylinux2014")
	if err == nil {
		t.Error("expected error for missing native artifact")
		return
	}
}

func TestCopyPath(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"src/lambda_handler.py": "handler",
		"src/tools/search.py":   "search",
	})
	err := copyPath(filepath.Join(dir, "src", "lambda_handler.py"), filepath.Join(dir, "dst", "lambda_handler.py"))
	if err != nil {
		t.Error(err)
		return
	}
	err = copyPath(filepath.Join(dir, "src", "tools"), filepath.Join(dir, "dst", "tools"))
	if err != nil {
		t.Error(err)
		return
	}
	for pth, want := range map[string]string{
		"dst/lambda_handler.py": "handler",
		"dst/tools/search.py":   "search",
	} {
		data, err := os.ReadFile(filepath.Join(dir, pth))
		if err != nil {
			t.Error(err)
			return
		}
		if string(data) != want {
			t.Errorf("\ngot:\n%s\nwant:\n%s\n", data, want)
			return
		}
	}
}

func TestBundleRm(t *testing.T) {
	infra, err := InfraParse(writeInfraYaml(t, "name: mcp-server\n"))
	if err != nil {
		t.Error(err)
		return
	}
	artifacts := func() {
		writeTree(t, infra.dir, map[string]string{
			"mcp-server-lambda-deployment.zip":   "zip",
			"payload.json":                       "{}",
			"response.json":                      "{}",
			"requirements.txt":                   "pydantic==2.0",
			"lambda_deployment_temp/leftover.py": "x",
		})
	}
	artifacts()
	err = BundleRm(infra, false)
	if err != nil {
		t.Error(err)
		return
	}
	for _, pth := range []string{
		"mcp-server-lambda-deployment.zip",
		"payload.json",
		"response.json",
		"lambda_deployment_temp",
	} {
		if Exists(filepath.Join(infra.dir, pth)) {
			t.Errorf("\nexpected removed: %s", pth)
			return
		}
	}
	if !Exists(filepath.Join(infra.dir, "requirements.txt")) {
		t.Error("expected requirements.txt to survive")
		return
	}
	err = BundleRm(infra, false)
	if err != nil {
		t.Error(err)
		return
	}
	artifacts()
	err = BundleRm(infra, true)
	if err != nil {
		t.Error(err)
		return
	}
	for _, pth := range []string{
		"mcp-server-lambda-deployment.zip",
		"payload.json",
		"response.json",
		"lambda_deployment_temp",
	} {
		if !Exists(filepath.Join(infra.dir, pth)) {
			t.Errorf("\npreview should not remove: %s", pth)
			return
		}
	}
}
