package router

import (
	"github.com/CHOUAiB/wampcore/internal/procedureregistry"
	"github.com/CHOUAiB/wampcore/internal/topiccontainer"
	"github.com/CHOUAiB/wampcore/pkg/topic"
)

// realm owns one isolated routing namespace: its own topic container and
// procedure registry, per spec.md's Realm glossary entry ("subscriptions
// and registrations never cross realms").
type realm struct {
	name    string
	topics  *topiccontainer.Container
	procs   *procedureregistry.Registry
}

func newRealm(name string, observer topic.Observer) *realm {
	return &realm{
		name:   name,
		topics: topiccontainer.New(observer),
		procs:  procedureregistry.New(),
	}
}
