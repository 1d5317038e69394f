package bot

import "regexp"

// Arg is one capture group of a matched pattern.
type Arg struct {
	// Name is the group name for (?P<name>...) groups, empty otherwise.
	Name string
	// Value is the captured text, empty when the group did not participate.
	Value string
	// Matched is false for an optional group that did not participate in
	// the match, which is distinct from a group that captured "".
	Matched bool
}

// Args holds every capture group of a match, in pattern order.
type Args []Arg

// Len returns the number of capture groups.
func (a Args) Len() int {
	return len(a)
}

// At returns the i-th group (0-based). Out of range yields a zero Arg.
func (a Args) At(i int) Arg {
	if i < 0 || i >= len(a) {
		return Arg{}
	}
	return a[i]
}

// Values returns the captured values positionally.
func (a Args) Values() []string {
	values := make([]string, len(a))
	for i, arg := range a {
		values[i] = arg.Value
	}
	return values
}

// Get returns the value of the named group and whether it participated.
func (a Args) Get(name string) (string, bool) {
	for _, arg := range a {
		if arg.Name == name && name != "" {
			return arg.Value, arg.Matched
		}
	}
	return "", false
}

// bindArgs maps the submatch index pairs in loc onto Args.
func bindArgs(re *regexp.Regexp, input string, loc []int) Args {
	n := re.NumSubexp()
	if n == 0 {
		return Args{}
	}
	names := re.SubexpNames()
	args := make(Args, n)
	for i := 1; i <= n; i++ {
		arg := Arg{Name: names[i]}
		if start, end := loc[2*i], loc[2*i+1]; start >= 0 {
			arg.Value = input[start:end]
			arg.Matched = true
		}
		args[i-1] = arg
	}
	return args
}
