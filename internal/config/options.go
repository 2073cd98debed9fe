package config

import (
	"fmt"

	"github.com/spf13/cast"
)

// Option shape checks catch malformed YAML early. Plugins decode the same
// maps into typed structs and apply their own semantic checks.

func validateIntegrationOptions(field string, in IntegrationConfig) error {
	o := in.Options
	switch in.Name {
	case IntegrationSitemap:
		if err := optionalStringList(field, o, "filter"); err != nil {
			return err
		}
		if v, ok := o["entryLimit"]; ok {
			n, err := cast.ToIntE(v)
			if err != nil || n <= 0 {
				return invalid(field+".entryLimit", fmt.Sprintf("entryLimit must be a positive integer, got %v", v))
			}
		}
		if v, ok := o["priority"]; ok {
			f, err := cast.ToFloat64E(v)
			if err != nil || f < 0 || f > 1 {
				return invalid(field+".priority", fmt.Sprintf("priority must be between 0 and 1, got %v", v))
			}
		}
	case IntegrationTailwind:
		if v, ok := o["applyBaseStyles"]; ok {
			if _, err := cast.ToBoolE(v); err != nil {
				return invalid(field+".applyBaseStyles", "applyBaseStyles must be a boolean")
			}
		}
		if err := optionalStringList(field, o, "input"); err != nil {
			return err
		}
	}
	return nil
}

func validateRehypeOptions(field string, p RehypePluginConfig) error {
	o := p.Options
	switch p.Name {
	case RehypeMermaid:
		if v, ok := o["launchOptions"]; ok && v != nil {
			launch, ok := v.(map[string]any)
			if !ok {
				return invalid(field+".launchOptions", "launchOptions must be a mapping")
			}
			if exe, ok := launch["executablePath"]; ok && exe != nil {
				if _, isString := exe.(string); !isString {
					return invalid(field+".launchOptions.executablePath", "executablePath must be a string or null")
				}
			}
		}
	case RehypeExternalLinks:
		if v, ok := o["target"]; ok && v != nil {
			if _, isString := v.(string); !isString {
				return invalid(field+".target", "target must be a string")
			}
		}
		if v, ok := o["rel"]; ok && v != nil {
			switch v.(type) {
			case string, []any, []string:
			default:
				return invalid(field+".rel", "rel must be a string or a list of strings")
			}
		}
		if v, ok := o["content"]; ok && v != nil {
			content, ok := v.(map[string]any)
			if !ok {
				return invalid(field+".content", "content must be a mapping with type and value")
			}
			if t := cast.ToString(content["type"]); t != "" && t != "text" {
				return invalid(field+".content.type", fmt.Sprintf("unsupported content type %q", t))
			}
		}
		if err := optionalStringList(field, o, "protocols"); err != nil {
			return err
		}
	}
	return nil
}

func optionalStringList(field string, o map[string]any, key string) error {
	v, ok := o[key]
	if !ok || v == nil {
		return nil
	}
	if _, err := cast.ToStringSliceE(v); err != nil {
		return invalid(field+"."+key, key+" must be a list of strings")
	}
	return nil
}
