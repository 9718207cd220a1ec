package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

// ErrEmptyImageURL 图片地址为空或只有域名
var ErrEmptyImageURL = errors.New("image url is empty")

var (
	imageExtRe     = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif)$`)
	unsafeNameRe   = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	repeatedDashRe = regexp.MustCompile(`-{2,}`)
)

// DeriveImageFileName 从图片地址推导规范文件名
// 取 path 的最后一段，清洗特殊字符；非 jpg/jpeg/png/gif 时补 .jpg
func DeriveImageFileName(rawURL, host string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if rawURL == "" || strings.TrimRight(rawURL, "/") == host {
		return "", ErrEmptyImageURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("无效的图片地址: %w", err)
	}

	base := path.Base(u.Path)
	if base == "/" || base == "." || base == "" {
		return "", ErrEmptyImageURL
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}

	name := SanitizeFileName(base)
	if name == "" {
		return "", ErrEmptyImageURL
	}
	if !imageExtRe.MatchString(name) {
		name += ".jpg"
	}
	return name, nil
}

// SanitizeFileName 空白转 "-"，去掉路径不安全字符
func SanitizeFileName(name string) string {
	name = strings.Join(strings.Fields(name), "-")
	name = unsafeNameRe.ReplaceAllString(name, "")
	name = repeatedDashRe.ReplaceAllString(name, "-")
	return strings.Trim(name, ".-_")
}

// ScaledVariant rug1.png -> rug1-scaled.png
func ScaledVariant(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "-scaled" + ext
}

// DetectMimeType 优先按扩展名推断，识别不了时按内容嗅探
func DetectMimeType(name string, data []byte) string {
	if ext := filepath.Ext(name); ext != "" {
		if t := mime.TypeByExtension(strings.ToLower(ext)); t != "" {
			return strings.SplitN(t, ";", 2)[0]
		}
	}
	if len(data) == 0 {
		return "application/octet-stream"
	}
	return mimetype.Detect(data).String()
}

// ==================== 缩略图 ====================

// RenditionSpec 派生图规格
type RenditionSpec struct {
	Name   string
	Width  int
	Height int
	Crop   bool // true: 居中裁剪到固定尺寸；false: 等比缩放到框内
}

// DefaultRenditions 默认派生图
var DefaultRenditions = []RenditionSpec{
	{Name: "thumbnail", Width: 150, Height: 150, Crop: true},
	{Name: "medium", Width: 300, Height: 300},
	{Name: "large", Width: 1024, Height: 1024},
}

// Rendition 生成结果
type Rendition struct {
	Name     string
	FileName string // rug1-150x150.png
	Data     []byte
	Width    int
	Height   int
}

// GenerateRenditions 解码原图并生成派生图；原图小于目标尺寸时跳过该规格
// 返回原图宽高
func GenerateRenditions(fileName string, data []byte, specs []RenditionSpec) (int, int, []Rendition, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return 0, 0, nil, fmt.Errorf("解码图片失败: %w", err)
	}
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	format, err := imaging.FormatFromFilename(fileName)
	if err != nil {
		format = imaging.JPEG
	}

	ext := filepath.Ext(fileName)
	stem := strings.TrimSuffix(fileName, ext)

	var out []Rendition
	for _, spec := range specs {
		if width <= spec.Width && height <= spec.Height {
			continue
		}

		var dst image.Image
		if spec.Crop {
			dst = imaging.Fill(src, spec.Width, spec.Height, imaging.Center, imaging.Lanczos)
		} else {
			dst = imaging.Fit(src, spec.Width, spec.Height, imaging.Lanczos)
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, dst, format); err != nil {
			return width, height, out, fmt.Errorf("生成 %s 失败: %w", spec.Name, err)
		}

		b := dst.Bounds()
		out = append(out, Rendition{
			Name:     spec.Name,
			FileName: fmt.Sprintf("%s-%dx%d%s", stem, b.Dx(), b.Dy(), ext),
			Data:     buf.Bytes(),
			Width:    b.Dx(),
			Height:   b.Dy(),
		})
	}
	return width, height, out, nil
}
