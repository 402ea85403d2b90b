// Package config loads hashpage.toml for the hashpage command.
//
// Values come from, in increasing priority: built-in defaults, the config
// file, HASHPAGE_* environment variables and command-line flags bound to
// the same viper instance.
//
// # Configuration File Structure
//
//	pages    = "page"
//	version  = "3"
//	expire   = 604800
//	notfound = "/404"
//	store    = "badger:.hashpage/cache"
//	source   = "./site"
//
//	[serve]
//	addr    = "localhost:3000"
//	bridge  = "/_bridge"
//	metrics = true
//
// # Usage
//
//	v := config.NewViper()
//	cfg, err := config.Load(v, "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rt, err := hashpage.New(cfg.Options())
package config
