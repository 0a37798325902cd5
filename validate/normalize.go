package validate

import (
	"strings"

	"github.com/byteness/vigil/errors"
)

// NormalizePath collapses repeated slashes and resolves "." and ".."
// segments against an empty ancestor stack (spec §4.3 step 2). Any
// ".." that would pop below the root fails with PathTraversal.
func NormalizePath(path string) (string, error) {
	if path == "" {
		return "/", nil
	}

	absolute := strings.HasPrefix(path, "/")
	trailingSlash := len(path) > 1 && strings.HasSuffix(path, "/")

	segments := strings.Split(path, "/")
	stack := make([]string, 0, len(segments))

	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(stack) == 0 {
				return "", errors.New(errors.ErrCodePathTraversal, errors.KindPathTraversal,
					"path traversal: '..' would escape the root directory",
					"remove '..' segments that climb above the site root", nil)
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, seg)
		}
	}

	result := strings.Join(stack, "/")
	if absolute || len(stack) > 0 {
		result = "/" + result
	}
	if trailingSlash && result != "/" {
		result += "/"
	}
	if result == "" {
		result = "/"
	}
	return result, nil
}
