package emit

import "strings"

const (
	toolBoxBundle = "com.dhinakg.USBToolBox.kext"
	mapBundleID   = "com.dhinakg.USBToolBox.map"
)

// InfoPlist renders the bundle's Info.plist dictionary.
func (c *Config) InfoPlist() map[string]any {
	personalities := make(map[string]any, len(c.Personalities))
	for _, p := range c.Personalities {
		personalities[p.Name] = c.personality(p)
	}

	doc := map[string]any{
		"CFBundleDevelopmentRegion":     "English",
		"CFBundleIdentifier":            mapBundleID,
		"CFBundleInfoDictionaryVersion": "6.0",
		"CFBundleName":                  strings.TrimSuffix(c.BundleName(), ".kext"),
		"CFBundlePackageType":           "KEXT",
		"CFBundleShortVersionString":    "1.0",
		"CFBundleSignature":             "????",
		"CFBundleVersion":               "1.0",
		"IOKitPersonalities":            personalities,
		"OSBundleRequired":              "Root",
	}
	if c.Mode == ModeToolBox {
		doc["OSBundleLibraries"] = map[string]any{toolBoxBundle: "1.0.0"}
	}
	return doc
}

func (c *Config) personality(p Personality) map[string]any {
	var out map[string]any
	switch c.Mode {
	case ModeToolBox:
		out = map[string]any{
			"CFBundleIdentifier": toolBoxBundle,
			"IOClass":            "USBToolBox",
			"IOProviderClass":    "IOPCIDevice",
			"IOMatchCategory":    "USBToolBox",
		}
		for k, v := range p.Key.Match {
			out[k] = v
		}
	default:
		class := "AppleUSBHostMergeProperties"
		if c.Mode == ModeNativeLegacy {
			class = "AppleUSBMergeNub"
		}
		out = map[string]any{
			"CFBundleIdentifier": "com.apple.driver." + class,
			"IOClass":            class,
			"IOProviderClass":    "AppleUSBHostController",
			"IOParentMatch":      p.Key.Match,
			"model":              c.ModelIdentifier,
		}
	}

	ports := make(map[string]any, len(p.Ports))
	for _, e := range p.Ports {
		entry := map[string]any{
			"port":         e.Port,
			"UsbConnector": int(e.Connector),
		}
		if c.AddComments && e.Comment != "" {
			entry["#comment"] = e.Comment
		}
		ports[e.Name] = entry
	}
	out["IOProviderMergeProperties"] = map[string]any{
		"ports":      ports,
		"port-count": p.PortCount,
	}
	return out
}
