package tokenfactory

import (
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &Configuration{}, migration.NoModification)
}

var isReferenceTicker = isTokenSymbol

func (c *Configuration) Validate() error {
	if err := c.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if err := c.Owner.Validate(); err != nil {
		return errors.Wrap(err, "owner")
	}
	if err := c.Coordinator.Validate(); err != nil {
		return errors.Wrap(err, "coordinator")
	}
	// Admin is optional. Without it the coordinator is the only identity
	// able to re-trigger execution.
	if len(c.Admin) != 0 {
		if err := c.Admin.Validate(); err != nil {
			return errors.Wrap(err, "admin")
		}
	}
	if !isReferenceTicker(c.ReferenceTicker) {
		return errors.Wrapf(errors.ErrInput, "reference ticker %q", c.ReferenceTicker)
	}
	return nil
}

func loadConf(db gconf.ReadStore) (*Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, "tokenfactory", &conf); err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}
	return &conf, nil
}
