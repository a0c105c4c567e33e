package templates

import (
	"embed"
	"html/template"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"git.carhub.se/carhub/carhub/src/carurl"
	"git.carhub.se/carhub/carhub/src/config"
	"git.carhub.se/carhub/carhub/src/logging"
	"git.carhub.se/carhub/carhub/src/oops"
	"git.carhub.se/carhub/carhub/src/utils"
	"github.com/Masterminds/sprig"
)

//go:embed src
var embeddedTemplateFs embed.FS
var embeddedTemplates map[string]*template.Template

// Relative to the repo root, which is where the website is expected to run
// from in development.
const liveTemplatesDir = "src/templates"

func getTemplatesFromFS(templateFS fs.FS) (map[string]*template.Template, map[string]error) {
	templates := make(map[string]*template.Template)
	errs := make(map[string]error)

	files := utils.Must1(fs.ReadDir(templateFS, "src"))
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".html") {
			continue
		}

		t := template.New(f.Name())
		t = t.Funcs(sprig.FuncMap())
		t = t.Funcs(CarHubTemplateFuncs)
		t, err := t.ParseFS(templateFS,
			"src/layouts/*.html",
			"src/include/*.html",
			"src/"+f.Name(),
		)
		if err != nil {
			errs[f.Name()] = err
			continue
		}

		templates[f.Name()] = t
	}

	return templates, errs
}

func Init() {
	var errs map[string]error
	type errEntry struct {
		name string
		err  error
	}

	embeddedTemplates, errs = getTemplatesFromFS(embeddedTemplateFs)
	if len(errs) > 0 {
		var errsList []errEntry
		for filename, err := range errs {
			errsList = append(errsList, errEntry{filename, err})
		}
		sort.Slice(errsList, func(i, j int) bool {
			return strings.Compare(errsList[i].name, errsList[j].name) < 0
		})
		for _, err := range errsList {
			logging.Error().Str("filename", err.name).Err(err.err).Msg("Failed to parse template")
		}
		panic("Failed to parse templates; see above")
	}
}

func GetTemplate(name string) *template.Template {
	var templates map[string]*template.Template
	if config.Config.DevConfig.LiveTemplates {
		var errs map[string]error
		templates, errs = getTemplatesFromFS(os.DirFS(liveTemplatesDir))
		if errs[name] != nil {
			panic(oops.New(errs[name], "Error in template %s", name))
		}
	} else {
		if embeddedTemplates == nil {
			Init()
		}
		templates = embeddedTemplates
	}

	template, hasTemplate := templates[name]
	if !hasTemplate {
		panic(oops.New(nil, "Template not found: %s", name))
	}
	return template
}

// Returns the names of all page templates, sorted.
func Names() []string {
	if embeddedTemplates == nil {
		Init()
	}
	result := make([]string, 0, len(embeddedTemplates))
	for name := range embeddedTemplates {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

var CarHubTemplateFuncs = template.FuncMap{
	"year": func() int {
		return time.Now().Year()
	},
	"static": func(filepath string) string {
		return carurl.BuildPublic(filepath)
	},
}
