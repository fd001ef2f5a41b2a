package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// Contract methods used by the service
const (
	MethodLogosFound         = "logosFound"
	MethodPersonalCollection = "personalCollection"
	MethodUniqueParticipants = "uniqueParticipants"
	MethodQuoteDispatch      = "quoteDispatch"
	MethodFindLogo           = "findLogo"
)

// LogoFoundSignature is the canonical signature of the discovery event.
// The finder is the first indexed topic.
const LogoFoundSignature = "LogoFound(address,uint256,uint256,uint32,uint32)"

// LogoFoundTopic is the keccak256 hash of LogoFoundSignature
var LogoFoundTopic = crypto.Keccak256Hash([]byte(LogoFoundSignature))

// LogoHuntGameABI is the subset of the game contract ABI the service calls
const LogoHuntGameABI = `[
	{"type":"function","name":"findLogo","stateMutability":"payable",
	 "inputs":[{"name":"_destinationDomain","type":"uint32"},{"name":"_userWallet","type":"address"}],"outputs":[]},
	{"type":"function","name":"quoteDispatch","stateMutability":"view",
	 "inputs":[{"name":"_destinationDomain","type":"uint32"},{"name":"_message","type":"bytes"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"logosFound","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"personalCollection","stateMutability":"view",
	 "inputs":[{"name":"_user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"uniqueParticipants","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"LogoFound","anonymous":false,"inputs":[
	 {"name":"finder","type":"address","indexed":true},
	 {"name":"totalCount","type":"uint256","indexed":false},
	 {"name":"personalCount","type":"uint256","indexed":false},
	 {"name":"originDomain","type":"uint32","indexed":false},
	 {"name":"destinationDomain","type":"uint32","indexed":false}]}
]`

// ParsedABI returns the parsed contract ABI
func ParsedABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(LogoHuntGameABI))
}
