package lib

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	bundleScratchDir       = "lambda_deployment_temp"
	bundleRequirementsFile = "requirements.txt"
	bundlePayloadFile      = "payload.json"
	bundleResponseFile     = "response.json"
)

// BundleEnsure assembles the deployment zip: compile locked requirements
// from the manifest, install binary-only wheels for the target lambda
// platform into a scratch dir, verify native artifacts, copy sources in,
// then zip with every entry at the archive root.
func BundleEnsure(infra *Infra, preview bool) error {
	_, err := exec.LookPath("uv")
	if err != nil {
		err := fmt.Errorf("uv not found on $PATH, install: https://docs.astral.sh/uv")
		Logger.Println("error:", err)
		return err
	}
	if !Exists(filepath.Join(infra.dir, infra.Require)) {
		err := fmt.Errorf("missing dependency manifest: %s", infra.Require)
		Logger.Println("error:", err)
		return err
	}
	if preview {
		Logger.Println(PreviewString(preview)+"created zip:", infra.zipFile())
		return nil
	}
	scratch := infra.scratch()
	err = os.RemoveAll(scratch)
	if err != nil {
		Logger.Println("error:", err)
		return err
	}
	err = os.MkdirAll(scratch, 0755)
	if err != nil {
		Logger.Println("error:", err)
		return err
	}
	defer func() {
		_ = os.RemoveAll(scratch)
	}()
	Logger.Info("compiling locked requirements:", infra.Require, "=>", bundleRequirementsFile)
	err = shellAt(infra.dir, "uv pip compile --quiet %s -o %s", infra.Require, bundleRequirementsFile)
	if err != nil {
		Logger.Println("error:", err)
		return err
	}
	Logger.Info("installing dependencies:", infra.Platform, "python"+infra.Python)
	err = shellAt(infra.dir, "uv pip install --quiet -r %s --target %s --python-platform %s --python-version %s --only-binary :all:",
		bundleRequirementsFile,
		bundleScratchDir,
		infra.Platform,
		infra.Python,
	)
	if err != nil {
		Logger.Println("error:", err)
		return err
	}
	err = bundleCheckNative(scratch, infra.Native, infra.Platform)
	if err != nil {
		Logger.Println("error:", err)
		return err
	}
	for _, include := range infra.Include {
		src := filepath.Join(infra.dir, strings.TrimSuffix(include, "/"))
		if !Exists(src) {
			Logger.Warning("skipping missing include:", include)
			continue
		}
		err := copyPath(src, filepath.Join(scratch, filepath.Base(src)))
		if err != nil {
			Logger.Println("error:", err)
			return err
		}
	}
	zipPath := infra.zipFile()
	err = zipDir(scratch, zipPath)
	if err != nil {
		Logger.Println("error:", err)
		return err
	}
	stat, err := os.Stat(zipPath)
	if err != nil {
		Logger.Println("error:", err)
		return err
	}
	Logger.Success("created zip:", zipPath, humanize.Bytes(uint64(stat.Size())))
	return nil
}

// bundleCheckNative hard fails unless every glob matches at least one
// installed artifact. a pure-python install of a package that needs
// compiled wheels would deploy fine and then die at import time.
func bundleCheckNative(scratch string, patterns []string, platform string) error {
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(scratch, pattern))
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return fmt.Errorf("no native artifact for platform %s matching: %s", platform, pattern)
		}
	}
	return nil
}

// BundleRm removes the local deployment artifacts: the zip, the invoke
// fixtures, and the scratch dir. missing paths are fine.
func BundleRm(infra *Infra, preview bool) error {
	paths := []string{
		infra.zipFile(),
		filepath.Join(infra.dir, bundlePayloadFile),
		filepath.Join(infra.dir, bundleResponseFile),
	}
	for _, pth := range paths {
		if !Exists(pth) {
			continue
		}
		if !preview {
			err := os.Remove(pth)
			if err != nil {
				Logger.Println("error:", err)
				return err
			}
		}
		Logger.Println(PreviewString(preview)+"removed:", pth)
	}
	scratch := infra.scratch()
	if Exists(scratch) {
		if !preview {
			err := os.RemoveAll(scratch)
			if err != nil {
				Logger.Println("error:", err)
				return err
			}
		}
		Logger.Println(PreviewString(preview)+"removed:", scratch)
	}
	return nil
}

func copyFile(src, dst string) error {
	err := os.MkdirAll(filepath.Dir(dst), 0755)
	if err != nil {
		return err
	}
	r, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.Close()
	}()
	w, err := os.Create(dst)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func copyPath(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyFile(src, dst)
	}
	return filepath.WalkDir(src, func(pth string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, pth)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(pth, target)
	})
}

// zipDir writes every file under dir into a zip with names relative to
// dir, so handlers and vendored packages land at the archive root where
// the lambda runtime expects them.
func zipDir(dir, zipPath string) error {
	f, err := os.Create(zipPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	w := zip.NewWriter(f)
	err = filepath.WalkDir(dir, func(pth string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, pth)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate
		dst, err := w.CreateHeader(header)
		if err != nil {
			return err
		}
		src, err := os.Open(pth)
		if err != nil {
			return err
		}
		defer func() {
			_ = src.Close()
		}()
		_, err = io.Copy(dst, src)
		return err
	})
	if err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
