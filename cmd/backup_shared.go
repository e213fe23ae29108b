package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func usersFromConfig(key string) ([]int64, error) {
	return parseUserIDs(viper.GetStringSlice(key))
}

func parseUserIDs(values []string) ([]int64, error) {
	if len(values) == 0 {
		return nil, nil
	}
	result := make([]int64, 0, len(values))
	for _, value := range values {
		raw := strings.TrimSpace(value)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", raw)
		}
		result = append(result, id)
	}
	if len(result) == 0 {
		return nil, nil
	}
	return result, nil
}

func bindFlagToViper(key string, flag *pflag.Flag) {
	if flag == nil {
		return
	}
	cobra.CheckErr(viper.BindPFlag(key, flag))
}
