package main

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bindFlag makes an explicitly set flag win over the environment and config file. Unset
// flags defer to them, so flag defaults never mask an environment variable.
func bindFlag(v *viper.Viper, key string, f *pflag.Flag) {
	if f == nil {
		return
	}
	_ = v.BindPFlag(key, f)
}
