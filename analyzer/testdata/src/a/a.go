package a

type store struct{}

func (store) Load(key string) (int, error) { return 0, nil }

type cache struct{}

func (cache) Get(key string) (int, bool) { return 0, false }

type missErr struct{}

func (missErr) Error() string { return "miss" }

//oof:debug=full
func fetch(s store, key string) (int, error) {
	v, err := s.Load(key) // want `fallible call chain is not instrumented, run oofgen rewrite -w`
	if err != nil {
		return 0, err
	}
	return v, nil
}

//oof:
func lookup(c cache, key string) (int, error) {
	v, ok := c.Get(key) // want `fallible call chain is not instrumented, run oofgen rewrite -w`
	if !ok {
		return 0, error(missErr{})
	}
	return v, nil
}

//oof:
func quiet(s store, key string) (int, error) {
	//oof:skip
	v, err := s.Load(key)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func ignored(s store, key string) (int, error) {
	v, err := s.Load(key)
	if err != nil {
		return 0, err
	}
	return v, nil
}
