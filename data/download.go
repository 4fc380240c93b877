package data

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

// Fixed upstream location of the road data.
const roadDataURL = "https://s3.eu-central-1.amazonaws.com/avg-kitti/data_road.zip"

// Pretrained classification weights, keyed by backbone name.
var backboneURLs = map[string]string{
	"vgg16":    "https://github.com/LaurentMazare/ocaml-torch/releases/download/v0.1-unstable/vgg16.ot",
	"resnet34": "https://github.com/LaurentMazare/ocaml-torch/releases/download/v0.1-unstable/resnet34.ot",
}

// FileExists returns true if the file or directory exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}

// Download fetches url into filePath, creating parent directories as
// needed, with a progress bar on the terminal.
func Download(url, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return errors.Wrapf(err, "failed creating directory for %q", filePath)
	}

	resp, err := http.Get(url)
	if err != nil {
		return errors.Wrapf(err, "failed downloading %q", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("downloading %q: unexpected status %q", url, resp.Status)
	}

	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed creating %q", filePath)
	}

	bar := progressbar.DefaultBytes(resp.ContentLength, filepath.Base(filePath))
	if _, err := io.Copy(io.MultiWriter(f, bar), resp.Body); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed downloading %q to %q", url, filePath)
	}

	return f.Close()
}

// DownloadIfMissing downloads url to filePath unless the file already
// exists. A non-empty checkHash pins the expected sha256 of the file.
func DownloadIfMissing(url, filePath, checkHash string) error {
	if !FileExists(filePath) {
		fmt.Printf("Downloading %v ...\n", url)
		if err := Download(url, filePath); err != nil {
			return err
		}
	}
	if checkHash == "" {
		return nil
	}

	return ValidateChecksum(filePath, checkHash)
}

// ValidateChecksum verifies the sha256 of the file at path. On mismatch the
// file is removed, so the next run downloads it again.
func ValidateChecksum(path, checkHash string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return errors.Wrapf(err, "failed hashing %q", path)
	}
	sum := hex.EncodeToString(hasher.Sum(nil))
	if sum != strings.ToLower(checkHash) {
		if rmErr := os.Remove(path); rmErr != nil {
			return errors.Wrapf(rmErr, "file %q has sha256 %q, want %q, and removing it failed too", path, sum, checkHash)
		}
		return errors.Errorf("file %q has sha256 %q, want %q; file removed", path, sum, checkHash)
	}

	return nil
}

// Unzip extracts a zip archive under destDir. Entries already on disk are
// overwritten, so a partial extraction converges on rerun.
func Unzip(zipFile, destDir string) error {
	r, err := zip.OpenReader(zipFile)
	if err != nil {
		return errors.Wrapf(err, "failed opening archive %q", zipFile)
	}
	defer r.Close()

	for _, zf := range r.File {
		target := filepath.Join(destDir, zf.Name)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return errors.Errorf("archive %q escapes destination: %q", zipFile, zf.Name)
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := extractFile(zf, target); err != nil {
			return errors.Wrapf(err, "failed extracting %q from %q", zf.Name, zipFile)
		}
	}

	return nil
}

func extractFile(zf *zip.File, target string) error {
	src, err := zf.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}

	return dst.Close()
}

// DownloadAndUnzipIfMissing fetches and extracts an archive unless
// targetDir, the directory the archive is known to produce, already exists.
func DownloadAndUnzipIfMissing(url, zipFile, destDir, targetDir, checkHash string) error {
	if FileExists(targetDir) {
		return nil
	}
	if err := DownloadIfMissing(url, zipFile, checkHash); err != nil {
		return err
	}
	if err := Unzip(zipFile, destDir); err != nil {
		return err
	}
	if !FileExists(targetDir) {
		return errors.Errorf("extracted %q but %q is still missing", zipFile, targetDir)
	}

	return nil
}

// EnsureBackbone downloads the pretrained weights of the named backbone into
// modelDir when absent and returns the weight file path.
func EnsureBackbone(modelDir, backbone string) (string, error) {
	url, ok := backboneURLs[backbone]
	if !ok {
		return "", errors.Errorf("no pretrained weights for backbone %q", backbone)
	}

	dest := filepath.Join(modelDir, backbone+".ot")
	if err := DownloadIfMissing(url, dest, ""); err != nil {
		return "", err
	}

	return dest, nil
}

// EnsureRoadData downloads and extracts the KITTI road benchmark under
// dataDir when absent and returns the extracted data_road directory.
func EnsureRoadData(dataDir string) (string, error) {
	target := filepath.Join(dataDir, "data_road")
	zipFile := filepath.Join(dataDir, "data_road.zip")
	if err := DownloadAndUnzipIfMissing(roadDataURL, zipFile, dataDir, target, ""); err != nil {
		return "", err
	}

	return target, nil
}
