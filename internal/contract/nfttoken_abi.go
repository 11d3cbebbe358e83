package contract

// NftTokenID is the built-in ID of the NftToken sale contract.
const NftTokenID = "nfttoken"

// NftToken is the fixed-price ERC-721 sale: buy() mints the next token id for
// exactly cost(), up to MAX_SUPPLY(); the owner withdraws the proceeds.
// Custom events are declared non-indexed; an artifact ABI replaces this one
// when given.
func init() {
	RegisterBuiltin(BuiltinKind{
		ID:          NftTokenID,
		Name:        "NftToken (fixed-price ERC-721 sale)",
		Description: "ERC-721 with a capped, fixed-price public mint and owner withdrawals.",
		ABI:         nftTokenABI,
	})
}

var (
	pAddress = func(name string) ABIParam { return ABIParam{Name: name, Type: "address"} }
	pUint    = func(name string) ABIParam { return ABIParam{Name: name, Type: "uint256"} }
	pString  = func(name string) ABIParam { return ABIParam{Name: name, Type: "string"} }
	indexed  = func(p ABIParam) ABIParam { p.Indexed = true; return p }
)

func view(name string, in []ABIParam, out ABIParam) ABIEntry {
	return ABIEntry{Name: name, Type: "function", Inputs: in, Outputs: []ABIParam{out}, StateMutability: "view"}
}

func write(name, mutability string, in ...ABIParam) ABIEntry {
	return ABIEntry{Name: name, Type: "function", Inputs: in, Outputs: []ABIParam{}, StateMutability: mutability}
}

func event(name string, in ...ABIParam) ABIEntry {
	return ABIEntry{Name: name, Type: "event", Inputs: in}
}

var nftTokenABI = []ABIEntry{
	{
		Type:            "constructor",
		Inputs:          []ABIParam{pString("_baseURI"), pUint("_cost")},
		StateMutability: "nonpayable",
	},

	// sale
	write("buy", "payable"),
	write("setBaseURI", "nonpayable", pString("_newBaseURI")),
	write("setCost", "nonpayable", pUint("_newCost")),
	write("withdraw", "nonpayable"),
	write("transferOwnership", "nonpayable", pAddress("newOwner")),

	view("owner", nil, pAddress("")),
	view("MAX_SUPPLY", nil, pUint("")),
	view("baseURI", nil, pString("")),
	view("cost", nil, pUint("")),
	view("name", nil, pString("")),
	view("symbol", nil, pString("")),
	view("balanceOf", []ABIParam{pAddress("owner")}, pUint("")),
	view("ownerOf", []ABIParam{pUint("tokenId")}, pAddress("")),
	view("tokenURI", []ABIParam{pUint("tokenId")}, pString("")),

	event("SetBaseURI", pString("newURI")),
	event("SetCost", pUint("newCost")),
	event("Buy", pAddress("buyer"), pUint("tokenId"), pUint("amountPaid")),
	event("Withdraw", pAddress("to"), pUint("amount")),
	event("Transfer", indexed(pAddress("from")), indexed(pAddress("to")), indexed(pUint("tokenId"))),
	event("OwnershipTransferred", indexed(pAddress("previousOwner")), indexed(pAddress("newOwner"))),
}
