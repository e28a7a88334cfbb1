package wsv

import "fmt"

// Key templates of the world state view. The layout is part of the
// replication contract: every peer must produce byte-identical keys,
// and prefix scans depend on the ordering these paths induce.

func PeerAddressKey(pubkey string) string {
	return fmt.Sprintf("peer/address/%s", pubkey)
}

func PeerTLSKey(pubkey string) string {
	return fmt.Sprintf("peer/tls/%s", pubkey)
}

func PeersCountKey() string {
	return "peers/count"
}

// PeerAddressPrefix scans all peer address entries.
func PeerAddressPrefix() string {
	return "peer/address/"
}

func AccountKey(domain, name string) string {
	return fmt.Sprintf("account/%s/%s", domain, name)
}

func QuorumKey(domain, name string) string {
	return fmt.Sprintf("account/%s/%s/quorum", domain, name)
}

func SignatoryKey(domain, name, pubkey string) string {
	return fmt.Sprintf("account/%s/%s/signatories/%s", domain, name, pubkey)
}

func SignatoryPrefix(domain, name string) string {
	return fmt.Sprintf("account/%s/%s/signatories/", domain, name)
}

func AccountRoleKey(domain, name, role string) string {
	return fmt.Sprintf("account/%s/%s/roles/%s", domain, name, role)
}

func AccountRolePrefix(domain, name string) string {
	return fmt.Sprintf("account/%s/%s/roles/", domain, name)
}

func AccountAssetKey(domain, name, assetID string) string {
	return fmt.Sprintf("account/%s/%s/assets/%s", domain, name, assetID)
}

func AccountAssetsCountKey(domain, name string) string {
	return fmt.Sprintf("account/%s/%s/assets_count", domain, name)
}

func AccountDetailKey(domain, name, writer, key string) string {
	return fmt.Sprintf("account/%s/%s/details/%s/%s", domain, name, writer, key)
}

func AccountDetailsCountKey(domain, name string) string {
	return fmt.Sprintf("account/%s/%s/details_count", domain, name)
}

func GrantKey(domain, name, grantorID string) string {
	return fmt.Sprintf("account/%s/%s/grants/%s", domain, name, grantorID)
}

func AssetKey(domain, name string) string {
	return fmt.Sprintf("asset/%s/%s", domain, name)
}

func DomainKey(id string) string {
	return fmt.Sprintf("domain/%s", id)
}

func RoleKey(name string) string {
	return fmt.Sprintf("role/%s", name)
}

func SettingKey(key string) string {
	return fmt.Sprintf("settings/%s", key)
}

func SignatoryUniqueKey(pubkey string) string {
	return fmt.Sprintf("signatories_unique/%s", pubkey)
}

func DomainsCountKey() string {
	return "domains_count"
}

// MaxDescriptionSizeKey is the reserved setting bounding transfer
// descriptions.
const MaxDescriptionSizeKey = "MaxDescriptionSize"
