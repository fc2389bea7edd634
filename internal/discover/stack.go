package discover

// Stack names returned by DetectStack.
const (
	StackVB6        = "vb6"
	StackCSharp     = "csharp"
	StackJava       = "java"
	StackPython     = "python"
	StackJavaScript = "javascript"
	StackUnknown    = "unknown"
)

// DetectStack guesses the technology of a project from its extension counts.
func DetectStack(root string) (string, error) {
	files, err := Files(root, Options{})
	if err != nil {
		return "", err
	}
	counts := make(map[string]int)
	for _, f := range files {
		counts[f.Ext]++
	}

	switch {
	case counts[".vbp"] > 0 || counts[".frm"] > 0:
		return StackVB6, nil
	case counts[".cs"] > 0 && counts[".csproj"] > 0:
		return StackCSharp, nil
	case counts[".java"] > 0:
		return StackJava, nil
	case counts[".py"] > 0:
		return StackPython, nil
	case counts[".ts"] > 0 || counts[".js"] > 0:
		return StackJavaScript, nil
	}
	return StackUnknown, nil
}
