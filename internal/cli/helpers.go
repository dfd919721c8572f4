package cli

import (
	"fmt"

	"sigs.k8s.io/yaml"
)

func printYaml(v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
