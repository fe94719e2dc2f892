package rbac

import (
	_ "embed"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category tags a page with the audience allowed to view it.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryPublic
	CategoryAdministrator
	CategorySuperAdmin
	CategoryAdminNotSuper
	CategoryClient
)

// Categories lists every category the matrix knows, including CategoryUnknown.
var Categories = []Category{
	CategoryUnknown,
	CategoryPublic,
	CategoryAdministrator,
	CategorySuperAdmin,
	CategoryAdminNotSuper,
	CategoryClient,
}

var categoryNames = map[Category]string{
	CategoryUnknown:       "unknown",
	CategoryPublic:        "public",
	CategoryAdministrator: "administrator-only",
	CategorySuperAdmin:    "super-admin-only",
	CategoryAdminNotSuper: "admin-only-not-super",
	CategoryClient:        "client-only",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// UnmarshalYAML reads a category by its name.
func (c *Category) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err != nil {
		return err
	}
	for cat, n := range categoryNames {
		if n == name && cat != CategoryUnknown {
			*c = cat
			return nil
		}
	}
	return fmt.Errorf("line %d: unknown page category %q", node.Line, name)
}

//go:embed pages.yaml
var defaultPages []byte

// EntryPoints are the concrete paths behind the redirect targets.
type EntryPoints struct {
	Anonymous    string `yaml:"anonymous"`
	AdminLogin   string `yaml:"admin_login"`
	StudentLogin string `yaml:"student_login"`
	AdminHome    string `yaml:"admin_home"`
	StudentHome  string `yaml:"student_home"`
}

type pageRule struct {
	Path     string   `yaml:"path"`
	Category Category `yaml:"category"`
}

type prefixRule struct {
	Prefix   string   `yaml:"prefix"`
	Category Category `yaml:"category"`
}

// Pages classifies request paths into categories. Exact paths win over
// prefixes; among prefixes the longest match wins.
type Pages struct {
	Entry    EntryPoints  `yaml:"entry_points"`
	Exact    []pageRule   `yaml:"pages"`
	Prefixes []prefixRule `yaml:"prefixes"`

	exact map[string]Category
}

// DefaultPages returns the built-in page table.
func DefaultPages() (*Pages, error) {
	return ParsePages(defaultPages)
}

// LoadPages reads a page table from path, or the built-in table when path is empty.
func LoadPages(path string) (*Pages, error) {
	if path == "" {
		return DefaultPages()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pages file: %w", err)
	}
	return ParsePages(data)
}

// ParsePages decodes a YAML page table.
func ParsePages(data []byte) (*Pages, error) {
	var p Pages
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse pages: %w", err)
	}
	if p.Entry.AdminLogin == "" || p.Entry.StudentLogin == "" || p.Entry.Anonymous == "" {
		return nil, fmt.Errorf("parse pages: entry_points must name anonymous, admin_login and student_login")
	}
	p.exact = make(map[string]Category, len(p.Exact))
	for _, rule := range p.Exact {
		p.exact[normalizePath(rule.Path)] = rule.Category
	}
	return &p, nil
}

// Classify returns the category of path.
func (p *Pages) Classify(path string) Category {
	path = normalizePath(path)
	if cat, ok := p.exact[path]; ok {
		return cat
	}
	best, bestLen := CategoryUnknown, -1
	for _, rule := range p.Prefixes {
		if strings.HasPrefix(path, rule.Prefix) && len(rule.Prefix) > bestLen {
			best, bestLen = rule.Category, len(rule.Prefix)
		}
	}
	return best
}

// Resolve turns a redirect target into a path. TargetNone resolves to "".
func (p *Pages) Resolve(t Target) string {
	switch t {
	case TargetAnonymous:
		return p.Entry.Anonymous
	case TargetAdminLogin:
		return p.Entry.AdminLogin
	case TargetStudentLogin:
		return p.Entry.StudentLogin
	case TargetAdminHome:
		return p.Entry.AdminHome
	case TargetStudentHome:
		return p.Entry.StudentHome
	default:
		return ""
	}
}

// normalizePath strips the query and fragment and resolves dot segments and
// repeated slashes. A trailing slash is kept so directory prefixes still match.
func normalizePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	cleaned := path.Clean("/" + p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}
