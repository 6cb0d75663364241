package cliconfig

// Merge returns defaults with every field present in user applied on top.
// Nested objects merge field by field and source groups merge by name.
// Lists present in user replace the default list; concatenation is reserved
// for source sets and lives in the bundle package.
func Merge(defaults CLIConfig, user *PartialConfig) CLIConfig {
	merged := defaults.Clone()
	if user == nil {
		return merged
	}

	if c := user.Controller; c != nil {
		setString(&merged.Controller.Host, c.Host)
		if p := c.Ports; p != nil {
			setInt(&merged.Controller.Ports.Primary, p.Primary)
			setInt(&merged.Controller.Ports.Dashboard, p.Dashboard)
		}
		if a := c.AutoLaunch; a != nil {
			setBool(&merged.Controller.AutoLaunch.Disabled, a.Disabled)
			setString(&merged.Controller.AutoLaunch.Version, a.Version)
			setBool(&merged.Controller.AutoLaunch.AutoStop, a.AutoStop)
		}
	}

	if s := user.TestServer; s != nil {
		setString(&merged.TestServer.Host, s.Host)
		setInt(&merged.TestServer.Port, s.Port)
		setInt(&merged.TestServer.DefaultTimeout, s.DefaultTimeout)
		if s.RestartThreshold != nil {
			v := *s.RestartThreshold
			merged.TestServer.RestartThreshold = &v
		}
	}

	if user.Mocks != nil {
		mergeGlobSet(&merged.Mocks, user.Mocks)
	}

	if len(user.Sources) > 0 && merged.Sources == nil {
		merged.Sources = make(map[string]SourceGroup, len(user.Sources))
	}
	for name, group := range user.Sources {
		target := merged.Sources[name].Clone()
		setString(&target.Root, group.Root)
		if group.Scripts != nil {
			mergeGlobSet(&target.Scripts, group.Scripts)
		}
		merged.Sources[name] = target
	}

	return merged
}

func mergeGlobSet(target *GlobSet, source *PartialGlobSet) {
	if source.Include != nil {
		target.Include = append([]string{}, source.Include...)
	}
	if source.Exclude != nil {
		target.Exclude = append([]string{}, source.Exclude...)
	}
}

func setString(target *string, v *string) {
	if v != nil {
		*target = *v
	}
}

func setInt(target *int, v *int) {
	if v != nil {
		*target = *v
	}
}

func setBool(target *bool, v *bool) {
	if v != nil {
		*target = *v
	}
}
