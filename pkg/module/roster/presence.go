// Copyright 2022 The marten Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package roster

import (
	"context"
	"errors"

	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	"github.com/jackal-xmpp/stravaganza/v2/jid"

	c2smodel "github.com/marten-im/marten/pkg/model/c2s"
	"github.com/marten-im/marten/pkg/model/rostermodel"
	"github.com/marten-im/marten/pkg/router"
	xmpputil "github.com/marten-im/marten/pkg/util/xmpp"
)

var errStreamNotFound = errors.New("roster: stream not found")

func (r *Roster) processPresence(ctx context.Context, pr *stravaganza.Presence) error {
	owner := pr.FromJID().ToBareJID()
	if !r.hosts.IsLocalHost(owner.Domain()) {
		owner = pr.ToJID().ToBareJID()
	}
	ek, err := Classify(pr, owner)
	if err != nil {
		var uErr *ErrUnclassifiablePresence
		if errors.As(err, &uErr) {
			level.Warn(r.logger).Log("msg", "dropped unclassifiable presence", "type", uErr.Type, "from", pr.Attribute(stravaganza.From))
			return nil
		}
		return err
	}
	switch ek {
	case rostermodel.OutSubscribe, rostermodel.InSubscribe:
		return r.processSubscribe(ctx, pr)

	case rostermodel.OutSubscribed, rostermodel.InSubscribed:
		return r.processSubscribed(ctx, pr)

	case rostermodel.OutUnsubscribe, rostermodel.InUnsubscribe:
		return r.processUnsubscribe(ctx, pr)

	case rostermodel.OutUnsubscribed, rostermodel.InUnsubscribed:
		return r.processUnsubscribed(ctx, pr)

	case rostermodel.OutProbe, rostermodel.InProbe:
		return r.processProbe(ctx, pr)

	case rostermodel.OutInitial, rostermodel.InInitial:
		return r.processAvailability(ctx, pr)

	case rostermodel.EventError:
		return nil // drop
	}
	return nil
}

func (r *Roster) processSubscribe(ctx context.Context, pr *stravaganza.Presence) error {
	userJID := pr.FromJID().ToBareJID()
	contactJID := pr.ToJID().ToBareJID()

	if r.hosts.IsLocalHost(userJID.Domain()) {
		res, err := r.engine.UpdateSubscription(ctx, userJID.Node(), contactJID.String(), rostermodel.OutSubscribe)
		if err != nil {
			return err
		}
		if res.Outcome == OutcomeChanged {
			if err := r.brd.Broadcast(ctx, res.Item, res.Hash); err != nil {
				return err
			}
		}
	}
	// stamp bare JID addresses
	p := xmpputil.MakePresence(userJID, contactJID, stravaganza.SubscribeType, pr.AllChildren())

	if !r.hosts.IsLocalHost(contactJID.Domain()) {
		_, err := r.router.Route(ctx, p)
		return suppressRouteError(err)
	}
	cri, err := r.rep.FetchRosterItem(ctx, contactJID.Node(), userJID.String())
	if err != nil {
		return err
	}
	if cri != nil && cri.Subscription.IsSubscribedFrom() {
		// subscription already granted: approve right away
		reply := xmpputil.MakePresence(contactJID, userJID, stravaganza.SubscribedType, nil)
		return r.processPresence(ctx, reply)
	}
	cRes, err := r.engine.UpdateSubscription(ctx, contactJID.Node(), userJID.String(), rostermodel.InSubscribe)
	if err != nil {
		return err
	}
	if cRes.Outcome != OutcomeChanged {
		return nil // request already pending
	}
	if cRes.Item.Subscription.IsSubscribedFrom() {
		// pre-approval promotion: approve on the contact's behalf
		if err := r.brd.Broadcast(ctx, cRes.Item, cRes.Hash); err != nil {
			return err
		}
		reply := xmpputil.MakePresence(contactJID, userJID, stravaganza.SubscribedType, nil)
		return r.processPresence(ctx, reply)
	}
	// archive request awaiting user approval
	rn := &rostermodel.Notification{
		Contact:  contactJID.Node(),
		JID:      userJID.String(),
		Presence: p,
	}
	if err := r.rep.UpsertRosterNotification(ctx, rn); err != nil {
		return err
	}
	_, err = r.router.Route(ctx, p)
	return suppressRouteError(err)
}

func (r *Roster) processSubscribed(ctx context.Context, pr *stravaganza.Presence) error {
	userJID := pr.FromJID().ToBareJID()
	contactJID := pr.ToJID().ToBareJID()

	if r.hosts.IsLocalHost(userJID.Domain()) {
		res, err := r.engine.UpdateSubscription(ctx, userJID.Node(), contactJID.String(), rostermodel.OutSubscribed)
		if err != nil {
			return err
		}
		if err := r.rep.DeleteRosterNotification(ctx, userJID.Node(), contactJID.String()); err != nil {
			return err
		}
		if res.Outcome == OutcomeChanged {
			if err := r.brd.Broadcast(ctx, res.Item, res.Hash); err != nil {
				return err
			}
		}
		if res.Item != nil && res.Item.Subscription.Attributes().Approved {
			return nil // pre-approval granted: nothing to route
		}
	}
	p := xmpputil.MakePresence(userJID, contactJID, stravaganza.SubscribedType, pr.AllChildren())

	if !r.hosts.IsLocalHost(contactJID.Domain()) {
		_, err := r.router.Route(ctx, p)
		return suppressRouteError(err)
	}
	cRes, err := r.engine.UpdateSubscription(ctx, contactJID.Node(), userJID.String(), rostermodel.InSubscribed)
	if err != nil {
		return err
	}
	if cRes.Outcome != OutcomeChanged {
		return nil
	}
	if err := r.brd.Broadcast(ctx, cRes.Item, cRes.Hash); err != nil {
		return err
	}
	if _, err := r.router.Route(ctx, p); err != nil {
		if err := suppressRouteError(err); err != nil {
			return err
		}
	}
	// newly authorized: let the requester see the approver's current presence
	return r.routePresencesFrom(ctx, userJID.Node(), contactJID, stravaganza.AvailableType)
}

func (r *Roster) processUnsubscribe(ctx context.Context, pr *stravaganza.Presence) error {
	userJID := pr.FromJID().ToBareJID()
	contactJID := pr.ToJID().ToBareJID()

	if r.hosts.IsLocalHost(userJID.Domain()) {
		res, err := r.engine.UpdateSubscription(ctx, userJID.Node(), contactJID.String(), rostermodel.OutUnsubscribe)
		if err != nil {
			return err
		}
		if res.Outcome == OutcomeChanged {
			if err := r.brd.Broadcast(ctx, res.Item, res.Hash); err != nil {
				return err
			}
		}
	}
	p := xmpputil.MakePresence(userJID, contactJID, stravaganza.UnsubscribeType, pr.AllChildren())

	if !r.hosts.IsLocalHost(contactJID.Domain()) {
		_, err := r.router.Route(ctx, p)
		return suppressRouteError(err)
	}
	contactUsername := contactJID.Node()

	prev, err := r.rep.FetchRosterItem(ctx, contactUsername, userJID.String())
	if err != nil {
		return err
	}
	cRes, err := r.engine.UpdateSubscription(ctx, contactUsername, userJID.String(), rostermodel.InUnsubscribe)
	if err != nil {
		return err
	}
	if cRes.Outcome == OutcomeUnchanged {
		return nil
	}
	if err := r.rep.DeleteRosterNotification(ctx, contactUsername, userJID.String()); err != nil {
		return err
	}
	// acknowledge cancellation on the contact's behalf
	if r.hosts.IsLocalHost(userJID.Domain()) {
		uRes, err := r.engine.UpdateSubscription(ctx, userJID.Node(), contactJID.String(), rostermodel.InUnsubscribed)
		if err != nil {
			return err
		}
		if uRes.Outcome == OutcomeChanged {
			if err := r.brd.Broadcast(ctx, uRes.Item, uRes.Hash); err != nil {
				return err
			}
		}
	}
	reply := xmpputil.MakePresence(contactJID, userJID, stravaganza.UnsubscribedType, nil)
	if _, err := r.router.Route(ctx, reply); err != nil {
		if err := suppressRouteError(err); err != nil {
			return err
		}
	}
	if _, err := r.router.Route(ctx, p); err != nil {
		if err := suppressRouteError(err); err != nil {
			return err
		}
	}
	switch cRes.Outcome {
	case OutcomeChanged:
		if err := r.brd.Broadcast(ctx, cRes.Item, cRes.Hash); err != nil {
			return err
		}
	case OutcomeRemoved:
		rmItem := &rostermodel.Item{
			Username:     contactUsername,
			JID:          userJID.String(),
			Subscription: rostermodel.Remove,
		}
		if err := r.brd.Broadcast(ctx, rmItem, cRes.Hash); err != nil {
			return err
		}
	}
	if prev != nil && prev.Subscription.IsSubscribedFrom() {
		// user no longer receives contact presence
		return r.routePresencesFrom(ctx, contactUsername, userJID, stravaganza.UnavailableType)
	}
	return nil
}

func (r *Roster) processUnsubscribed(ctx context.Context, pr *stravaganza.Presence) error {
	userJID := pr.FromJID().ToBareJID()
	contactJID := pr.ToJID().ToBareJID()

	var wasSubscribedFrom bool

	if r.hosts.IsLocalHost(userJID.Domain()) {
		username := userJID.Node()

		prev, err := r.rep.FetchRosterItem(ctx, username, contactJID.String())
		if err != nil {
			return err
		}
		wasSubscribedFrom = prev != nil && prev.Subscription.IsSubscribedFrom()

		res, err := r.engine.UpdateSubscription(ctx, username, contactJID.String(), rostermodel.OutUnsubscribed)
		if err != nil {
			return err
		}
		if err := r.rep.DeleteRosterNotification(ctx, username, contactJID.String()); err != nil {
			return err
		}
		switch res.Outcome {
		case OutcomeChanged:
			if err := r.brd.Broadcast(ctx, res.Item, res.Hash); err != nil {
				return err
			}
		case OutcomeRemoved:
			rmItem := &rostermodel.Item{
				Username:     username,
				JID:          contactJID.String(),
				Subscription: rostermodel.Remove,
			}
			if err := r.brd.Broadcast(ctx, rmItem, res.Hash); err != nil {
				return err
			}
		}
	}
	p := xmpputil.MakePresence(userJID, contactJID, stravaganza.UnsubscribedType, pr.AllChildren())

	if !r.hosts.IsLocalHost(contactJID.Domain()) {
		_, err := r.router.Route(ctx, p)
		return suppressRouteError(err)
	}
	cRes, err := r.engine.UpdateSubscription(ctx, contactJID.Node(), userJID.String(), rostermodel.InUnsubscribed)
	if err != nil {
		return err
	}
	if cRes.Outcome == OutcomeChanged {
		if err := r.brd.Broadcast(ctx, cRes.Item, cRes.Hash); err != nil {
			return err
		}
		if _, err := r.router.Route(ctx, p); err != nil {
			if err := suppressRouteError(err); err != nil {
				return err
			}
		}
	}
	if wasSubscribedFrom {
		// contact no longer receives user presence
		return r.routePresencesFrom(ctx, userJID.Node(), contactJID, stravaganza.UnavailableType)
	}
	return nil
}

func (r *Roster) processProbe(ctx context.Context, pr *stravaganza.Presence) error {
	userJID := pr.FromJID().ToBareJID()
	contactJID := pr.ToJID().ToBareJID()

	p := xmpputil.MakePresence(userJID, contactJID, stravaganza.ProbeType, nil)

	if !r.hosts.IsLocalHost(contactJID.Domain()) {
		_, err := r.router.Route(ctx, p)
		return suppressRouteError(err)
	}
	contactUsername := contactJID.Node()

	ri, err := r.rep.FetchRosterItem(ctx, contactUsername, userJID.String())
	if err != nil {
		return err
	}
	state := rostermodel.None
	if ri != nil {
		state = ri.Subscription
	}
	switch {
	case state.IsPendingIn():
		_, err := r.router.Route(ctx, xmpputil.MakeErrorStanza(p, stanzaerror.NotAuthorized))
		return suppressRouteError(err)

	case !state.IsSubscribedFrom():
		_, err := r.router.Route(ctx, xmpputil.MakeErrorStanza(p, stanzaerror.Forbidden))
		return suppressRouteError(err)
	}
	rss, err := r.resMng.GetResources(ctx, contactUsername)
	if err != nil {
		return err
	}
	var replied bool
	for _, rs := range rss {
		if !rs.IsAvailable() {
			continue
		}
		availPr := xmpputil.MakePresence(rs.JID(), userJID, stravaganza.AvailableType, rs.Presence().AllChildren())
		if _, err := r.router.Route(ctx, availPr); err != nil {
			if err := suppressRouteError(err); err != nil {
				return err
			}
		}
		replied = true
	}
	if !replied {
		unavailPr := xmpputil.MakePresence(contactJID, userJID, stravaganza.UnavailableType, nil)
		_, err := r.router.Route(ctx, unavailPr)
		return suppressRouteError(err)
	}
	return nil
}

func (r *Roster) processAvailability(ctx context.Context, pr *stravaganza.Presence) error {
	userJID := pr.FromJID().ToBareJID()
	contactJID := pr.ToJID().ToBareJID()

	// an account updating its own bare identity broadcasts on its behalf
	replyOnBehalf := r.hosts.IsLocalHost(userJID.Domain()) &&
		userJID.MatchesWithOptions(contactJID, jid.MatchesBare)

	if replyOnBehalf {
		return r.broadcastAvailability(ctx, pr)
	}
	return r.deliverAvailability(ctx, pr)
}

// broadcastAvailability handles an account's own availability update:
// cache the presence, probe subscribed-to contacts on first availability
// and notify every contact subscribed to the account.
func (r *Roster) broadcastAvailability(ctx context.Context, pr *stravaganza.Presence) error {
	fromJID := pr.FromJID()

	username := fromJID.Node()
	resource := fromJID.Resource()

	if err := r.cachePresence(ctx, username, resource, pr); err != nil {
		return err
	}
	ros, err := r.rep.FetchRoster(ctx, username)
	if err != nil {
		return err
	}
	isAvailable := pr.Attribute(stravaganza.Type) != stravaganza.UnavailableType

	if isAvailable {
		inf, ok := r.getStreamInfo(username, resource)
		if ok && !inf.Bool(availableInfoKey) {
			if err := r.deliverPendingNotifications(ctx, username); err != nil {
				return err
			}
			if err := r.probeContacts(ctx, fromJID, ros); err != nil {
				return err
			}
			if err := r.setStreamValue(ctx, username, resource, availableInfoKey, true); err != nil {
				return err
			}
		}
	}
	// notify subscribed contacts
	for _, ri := range ros.Items {
		if !ri.Subscription.IsSubscribedFrom() {
			continue
		}
		p := xmpputil.MakePresence(fromJID, ri.ContactJID(), pr.Attribute(stravaganza.Type), pr.AllChildren())
		if _, err := r.router.Route(ctx, p); err != nil {
			if err := suppressRouteError(err); err != nil {
				return err
			}
		}
	}
	// fan out to the account's remaining resources
	rss, err := r.resMng.GetResources(ctx, username)
	if err != nil {
		return err
	}
	for _, rs := range rss {
		if rs.JID().Resource() == resource {
			continue
		}
		p := xmpputil.MakePresence(fromJID, rs.JID(), pr.Attribute(stravaganza.Type), pr.AllChildren())
		if _, err := r.router.Route(ctx, p); err != nil {
			if err := suppressRouteError(err); err != nil {
				return err
			}
		}
	}
	return nil
}

// deliverAvailability delivers a directed or inbound availability update to
// the recipient's resources when the recipient is subscribed to the sender.
func (r *Roster) deliverAvailability(ctx context.Context, pr *stravaganza.Presence) error {
	toJID := pr.ToJID().ToBareJID()

	if !r.hosts.IsLocalHost(toJID.Domain()) {
		_, err := r.router.Route(ctx, pr)
		return suppressRouteError(err)
	}
	ri, err := r.rep.FetchRosterItem(ctx, toJID.Node(), pr.FromJID().ToBareJID().String())
	if err != nil {
		return err
	}
	if ri == nil && r.dyn != nil {
		dynRi, dErr := r.dyn.GetContactItem(ctx, toJID.Node(), pr.FromJID().ToBareJID().String())
		if dErr != nil {
			level.Warn(r.logger).Log("msg", "failed to fetch dynamic roster entry", "jid", pr.Attribute(stravaganza.From), "err", dErr)
		} else {
			ri = dynRi
		}
	}
	if ri == nil || !ri.Subscription.IsSubscribedTo() {
		return nil // recipient not subscribed to sender
	}
	_, err = r.router.Route(ctx, pr)
	return suppressRouteError(err)
}

func (r *Roster) cachePresence(ctx context.Context, username, resource string, pr *stravaganza.Presence) error {
	rs, err := r.resMng.GetResource(ctx, username, resource)
	if err != nil {
		return err
	}
	if rs == nil {
		return nil // resource not yet registered
	}
	return r.resMng.PutResource(ctx, c2smodel.NewResourceDesc(
		rs.InstanceID(),
		rs.JID(),
		pr,
		rs.Info(),
	))
}

func (r *Roster) deliverPendingNotifications(ctx context.Context, username string) error {
	rns, err := r.rep.FetchRosterNotifications(ctx, username)
	if err != nil {
		return err
	}
	for _, rn := range rns {
		if rn.Presence == nil {
			continue
		}
		if _, err := r.router.Route(ctx, rn.Presence); err != nil {
			if err := suppressRouteError(err); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Roster) probeContacts(ctx context.Context, userJID *jid.JID, ros *rostermodel.Roster) error {
	for _, ri := range ros.Items {
		if !ri.Subscription.IsProbeTarget() {
			continue
		}
		contactJID := ri.ContactJID()
		if r.hosts.IsLocalHost(contactJID.Domain()) {
			// reply on the contact's behalf
			if err := r.routePresencesFrom(ctx, contactJID.Node(), userJID, stravaganza.AvailableType); err != nil {
				return err
			}
			continue
		}
		probePr := xmpputil.MakePresence(userJID.ToBareJID(), contactJID, stravaganza.ProbeType, nil)
		if _, err := r.router.Route(ctx, probePr); err != nil {
			if err := suppressRouteError(err); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Roster) routePresencesFrom(ctx context.Context, username string, toJID *jid.JID, presenceType string) error {
	rss, err := r.resMng.GetResources(ctx, username)
	if err != nil {
		return err
	}
	for _, rs := range rss {
		if !rs.IsAvailable() {
			continue
		}
		var children []stravaganza.Element
		if pr := rs.Presence(); pr != nil {
			children = pr.AllChildren()
		}
		p := xmpputil.MakePresence(rs.JID(), toJID.ToBareJID(), presenceType, children)
		if _, err := r.router.Route(ctx, p); err != nil {
			if err := suppressRouteError(err); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Roster) getStreamInfo(username, resource string) (c2smodel.Info, bool) {
	stm := r.router.C2S().LocalStream(username, resource)
	if stm == nil {
		return c2smodel.Info{}, false
	}
	return stm.Info(), true
}

func (r *Roster) setStreamValue(ctx context.Context, username, resource, k string, val interface{}) error {
	stm := r.router.C2S().LocalStream(username, resource)
	if stm == nil {
		return errStreamNotFound
	}
	return stm.SetInfoValue(ctx, k, val)
}

func suppressRouteError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, router.ErrResourceNotFound),
		errors.Is(err, router.ErrUserNotAvailable),
		errors.Is(err, router.ErrRemoteServerNotFound):
		return nil
	}
	return err
}
