package cache

import "time"

// Fetch is the shape of a memoizable function: given args (already
// stringified by the caller), it produces a single string value. This is
// intentionally specialized to string-valued functions; the one
// production call site, patch-version lookup, returns a version string,
// and the memoizer never needs to be more general than that.
type Fetch func(args ...string) (string, error)

// ArgsToStr renders a function's args into the cache-key suffix.
type ArgsToStr func(args []string) string

// OnChange is notified with the previous and new value whenever Autostore
// observes a changed result.
type OnChange func(old, new string)

// Autostore wraps f with caching memoization:
//
//  1. k = key (+ argsToStr(args), if argsToStr is non-nil).
//  2. A cache hit on k returns immediately.
//  3. On a miss, f is called and the result stored under k with ttl. If
//     onChange is set, the new value is compared against a shadow entry
//     at k+"_old" (ttl 0); a change invokes onChange and updates the
//     shadow.
//
// The returned Fetch is safe for concurrent use; c guards its own state.
func Autostore(key string, ttl time.Duration, c *Cache, f Fetch, argsToStr ArgsToStr, onChange OnChange) Fetch {
	return func(args ...string) (string, error) {
		k := key
		if argsToStr != nil {
			k += argsToStr(args)
		}

		if v := c.Get(k, nil); v != nil {
			return v.(string), nil
		}

		newValue, err := f(args...)
		if err != nil {
			return "", err
		}
		c.Set(k, newValue, ttl)

		if onChange != nil {
			shadowKey := k + "_old"
			old, _ := c.Get(shadowKey, "").(string)
			if old != newValue {
				onChange(old, newValue)
			}
			c.Set(shadowKey, newValue, 0)
		}

		return newValue, nil
	}
}
