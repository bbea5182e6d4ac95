package cleanioc

import "reflect"

// Bundle groups related registrations so they can be applied to a
// container as one unit.
type Bundle func(*Container) error

// ApplyBundle applies bundles in order, stopping at the first failure.
func ApplyBundle(c *Container, bundles ...Bundle) error {
	for _, b := range bundles {
		if err := b(c); err != nil {
			return err
		}
	}

	return nil
}

// RunOnce guards a bundle against repeated application on the same
// container. A repeat application is skipped with a warning; distinct
// containers each get their own application.
func RunOnce(b Bundle) Bundle {
	key := reflect.ValueOf(b).Pointer()

	return func(c *Container) error {
		if c.bundleApplied(key) {
			c.log().Warn("bundle already applied, skipping", "bundle", implementationName(b))
			return nil
		}

		if err := b(c); err != nil {
			return err
		}

		c.markBundleApplied(key)

		return nil
	}
}
