package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/OdyseeTeam/gondola/library"
	"github.com/OdyseeTeam/gondola/pages"

	"github.com/spf13/viper"
)

const configName = "gondola"

type Config struct {
	Bind         string
	DefaultVideo string
	Paths        Paths
	Library      Library
	Shell        Shell
	Site         Site
}

type Paths struct {
	Files      string
	Videos     string
	Sources    string
	Statistics string
	Remove     string
	Password   string
	Log        string
}

type Library struct {
	Interval time.Duration
	Workers  int
	Watch    bool
}

type Shell struct {
	Rate      float64
	Burst     int
	SecretTTL time.Duration
}

type Site struct {
	Name        string
	Singular    string
	Plural      string
	Description string
	Board       string
	Email       string
	Forum       string
	URL         string
	ListTitle   string
}

func ProjectRoot() (string, error) {
	ex, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(ex), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bind", "127.0.0.1:50801")
	v.SetDefault("defaultvideo", "FrontPage.webm")

	v.SetDefault("paths.files", "files")
	v.SetDefault("paths.videos", "files/video")
	v.SetDefault("paths.sources", "files/sources")
	v.SetDefault("paths.statistics", "files/statistics")
	v.SetDefault("paths.remove", "files/remove")
	v.SetDefault("paths.password", "password")
	v.SetDefault("paths.log", "")

	v.SetDefault("library.interval", library.DefaultInterval)
	v.SetDefault("library.workers", 8)
	v.SetDefault("library.watch", true)

	v.SetDefault("shell.rate", 0.2)
	v.SetDefault("shell.burst", 5)
	v.SetDefault("shell.secretttl", 30*time.Second)

	v.SetDefault("site.name", "gondola.stravers")
	v.SetDefault("site.singular", "Gondola")
	v.SetDefault("site.plural", "Gondolas")
	v.SetDefault("site.description", "Gondola webms depicting our favorite silent observer")
	v.SetDefault("site.board", "/gs/")
	v.SetDefault("site.email", "gondola@nabein.me")
	v.SetDefault("site.forum", "evo-1")
	v.SetDefault("site.url", "https://gondola.stravers.net")
	v.SetDefault("site.listtitle", "GondolaArchive")
}

// Read loads configuration from path, or when path is empty from gondola.* found
// next to the executable or in the working directory. A config file that cannot
// be found in the search paths is not an error, defaults are used instead.
func Read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		pp, err := ProjectRoot()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(pp)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("fatal error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	return cfg, nil
}

func (p Paths) Library() library.Paths {
	return library.Paths{
		Videos:     p.Videos,
		Sources:    p.Sources,
		Statistics: p.Statistics,
		Removals:   p.Remove,
	}
}

func (s Site) Pages() pages.Site {
	return pages.Site(s)
}
