package gokafka

import (
	"errors"
	"io"
	"sync"
	"time"
)

// ClusterAdmin exposes a deliberately narrow administrative surface:
// enough to join, describe, and clean up consumer groups. Broader cluster
// administration (topic CRUD, ACLs, quotas, partition reassignment, SCRAM
// credentials) is a thin wrapper over one request/response pair apiece and
// is intentionally left out — see DESIGN.md.
type ClusterAdmin interface {
	// ListConsumerGroups returns every group known to the cluster, mapped
	// to its protocol type ("consumer", "connect", ...).
	ListConsumerGroups() (map[string]string, error)

	// DescribeConsumerGroups returns full member/assignment detail for the
	// named groups.
	DescribeConsumerGroups(groups []string) ([]DescribeGroupsGroup, error)

	// ListConsumerGroupOffsets fetches committed offsets for group, for
	// the given topic/partitions (nil topicPartitions fetches all).
	ListConsumerGroupOffsets(group string, topicPartitions map[string][]int32) (*OffsetFetchResponse, error)

	// DeleteConsumerGroup removes an empty consumer group.
	DeleteConsumerGroup(group string) error

	// RemoveMemberFromConsumerGroup evicts static members (KIP-345) ahead
	// of their session timeout, e.g. during a planned scale-down.
	RemoveMemberFromConsumerGroup(group string, groupInstanceIDs []string) (*LeaveGroupResponse, error)

	// Controller returns the cluster controller broker.
	Controller() (*Broker, error)

	// Coordinator returns the coordinating broker for group.
	Coordinator(group string) (*Broker, error)

	Close() error
}

type clusterAdmin struct {
	client Client
	conf   *Config
}

// NewClusterAdmin dials addrs with its own Client, closed together with
// the admin.
func NewClusterAdmin(addrs []string, conf *Config) (ClusterAdmin, error) {
	client, err := NewClient(addrs, conf)
	if err != nil {
		return nil, err
	}
	admin, err := NewClusterAdminFromClient(client)
	if err != nil {
		_ = client.Close()
	}
	return admin, err
}

// NewClusterAdminFromClient builds a ClusterAdmin on a caller-owned
// Client; Close on the returned admin also closes client.
func NewClusterAdminFromClient(client Client) (ClusterAdmin, error) {
	if _, err := client.Controller(); err != nil {
		return nil, err
	}
	return &clusterAdmin{client: client, conf: client.Config()}, nil
}

func (ca *clusterAdmin) Close() error               { return ca.client.Close() }
func (ca *clusterAdmin) Controller() (*Broker, error) { return ca.client.Controller() }
func (ca *clusterAdmin) Coordinator(group string) (*Broker, error) {
	return ca.client.Coordinator(group)
}

// isRetriableGroupCoordinatorError reports whether err is the class of
// coordinator-moved/not-yet-available error that a refreshed Coordinator
// lookup and retry can resolve.
func isRetriableGroupCoordinatorError(err error) bool {
	return errors.Is(err, ErrNotCoordinatorForConsumer) || errors.Is(err, ErrConsumerCoordinatorNotAvailable) || errors.Is(err, io.EOF)
}

func (ca *clusterAdmin) retryOnError(retryable func(error) bool, fn func() error) error {
	for attemptsRemaining := ca.conf.Admin.Retry.Max + 1; ; {
		err := fn()
		attemptsRemaining--
		if err == nil || attemptsRemaining <= 0 || !retryable(err) {
			return err
		}
		Logger.Printf("admin: retrying after %s (%d attempts remaining): %v\n",
			ca.conf.Admin.Retry.Backoff, attemptsRemaining, err)
		time.Sleep(ca.conf.Admin.Retry.Backoff)
	}
}

func (ca *clusterAdmin) groupRequestVersion() int16 {
	switch {
	case ca.conf.Version.IsAtLeast(V2_4_0_0):
		return 4
	case ca.conf.Version.IsAtLeast(V2_3_0_0):
		return 3
	case ca.conf.Version.IsAtLeast(V2_0_0_0):
		return 2
	case ca.conf.Version.IsAtLeast(V1_1_0_0):
		return 1
	default:
		return 0
	}
}

func (ca *clusterAdmin) DescribeConsumerGroups(groups []string) ([]DescribeGroupsGroup, error) {
	groupsPerBroker := make(map[*Broker][]string)
	for _, group := range groups {
		coordinator, err := ca.client.Coordinator(group)
		if err != nil {
			return nil, err
		}
		groupsPerBroker[coordinator] = append(groupsPerBroker[coordinator], group)
	}

	var result []DescribeGroupsGroup
	for broker, brokerGroups := range groupsPerBroker {
		req := &DescribeGroupsRequest{Version: ca.groupRequestVersion(), Groups: brokerGroups}
		resp, err := broker.DescribeGroups(req)
		if err != nil {
			return nil, err
		}
		result = append(result, resp.Groups...)
	}
	return result, nil
}

func (ca *clusterAdmin) listGroupsRequestVersion() int16 {
	switch {
	case ca.conf.Version.IsAtLeast(V2_5_0_0):
		return 4
	case ca.conf.Version.IsAtLeast(V2_4_0_0):
		return 3
	case ca.conf.Version.IsAtLeast(V2_0_0_0):
		return 2
	case ca.conf.Version.IsAtLeast(V0_11_0_0):
		return 1
	default:
		return 0
	}
}

func (ca *clusterAdmin) ListConsumerGroups() (map[string]string, error) {
	brokers := ca.client.Brokers()
	allGroups := make(map[string]string)

	type result struct {
		groups map[string]string
		err    error
	}
	results := make(chan result, len(brokers))
	var wg sync.WaitGroup
	for _, b := range brokers {
		wg.Add(1)
		go func(b *Broker) {
			defer wg.Done()
			_ = b.Open(ca.conf)
			req := &ListGroupsRequest{Version: ca.listGroupsRequestVersion()}
			resp, err := b.ListGroups(req)
			if err != nil {
				results <- result{err: err}
				return
			}
			groups := make(map[string]string, len(resp.Groups))
			for _, g := range resp.Groups {
				groups[g.GroupID] = g.ProtocolType
			}
			results <- result{groups: groups}
		}(b)
	}
	wg.Wait()
	close(results)

	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		for group, protocolType := range r.groups {
			allGroups[group] = protocolType
		}
	}
	return allGroups, firstErr
}

func (ca *clusterAdmin) ListConsumerGroupOffsets(group string, topicPartitions map[string][]int32) (*OffsetFetchResponse, error) {
	req := &OffsetFetchRequest{ConsumerGroup: group}
	if topicPartitions == nil {
		req.FetchAllPartitions()
	} else {
		for topic, partitions := range topicPartitions {
			for _, partition := range partitions {
				req.AddPartition(topic, partition)
			}
		}
	}

	var response *OffsetFetchResponse
	err := ca.retryOnError(isRetriableGroupCoordinatorError, func() (err error) {
		defer func() {
			if err != nil && isRetriableGroupCoordinatorError(err) {
				_ = ca.client.RefreshCoordinator(group)
			}
		}()

		coordinator, err := ca.client.Coordinator(group)
		if err != nil {
			return err
		}
		response, err = coordinator.FetchOffset(req)
		if err != nil {
			return err
		}
		if !errors.Is(response.Err, ErrNoError) {
			return response.Err
		}
		return nil
	})
	return response, err
}

func (ca *clusterAdmin) DeleteConsumerGroup(group string) error {
	req := &DeleteGroupsRequest{Groups: []string{group}}
	if ca.conf.Version.IsAtLeast(V2_0_0_0) {
		req.Version = 1
	}

	return ca.retryOnError(isRetriableGroupCoordinatorError, func() (err error) {
		defer func() {
			if err != nil && isRetriableGroupCoordinatorError(err) {
				_ = ca.client.RefreshCoordinator(group)
			}
		}()

		coordinator, err := ca.client.Coordinator(group)
		if err != nil {
			return err
		}
		resp, err := coordinator.DeleteGroups(req)
		if err != nil {
			return err
		}
		groupErr, ok := resp.GroupErrorCodes[group]
		if !ok {
			return ErrIncompleteResponse
		}
		if !errors.Is(groupErr, ErrNoError) {
			return groupErr
		}
		return nil
	})
}

func (ca *clusterAdmin) RemoveMemberFromConsumerGroup(group string, groupInstanceIDs []string) (*LeaveGroupResponse, error) {
	if !ca.conf.Version.IsAtLeast(V2_4_0_0) {
		return nil, ConfigurationError("RemoveMemberFromConsumerGroup requires Kafka version >= 2.4.0")
	}

	req := &LeaveGroupRequest{Version: 3, GroupID: group}
	for _, instanceID := range groupInstanceIDs {
		instanceID := instanceID
		req.Members = append(req.Members, LeaveGroupMember{GroupInstanceID: &instanceID})
	}

	var response *LeaveGroupResponse
	err := ca.retryOnError(isRetriableGroupCoordinatorError, func() (err error) {
		defer func() {
			if err != nil && isRetriableGroupCoordinatorError(err) {
				_ = ca.client.RefreshCoordinator(group)
			}
		}()

		coordinator, err := ca.client.Coordinator(group)
		if err != nil {
			return err
		}
		response, err = coordinator.LeaveGroup(req)
		if err != nil {
			return err
		}
		if !errors.Is(response.Err, ErrNoError) {
			return response.Err
		}
		return nil
	})
	return response, err
}
