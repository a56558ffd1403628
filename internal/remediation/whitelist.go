package remediation

import (
	"bufio"
	"os"
	"strings"
)

// LoadWhitelist reads one unit name per line. Blank lines and lines starting
// with '#' are ignored. Any read failure yields an empty set, which
// authorizes nothing.
func LoadWhitelist(path string) map[string]struct{} {
	units := make(map[string]struct{})
	f, err := os.Open(path)
	if err != nil {
		return units
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		units[strings.TrimSuffix(line, ".service")] = struct{}{}
	}
	if scanner.Err() != nil {
		return make(map[string]struct{})
	}
	return units
}
