// Copyright 2025 The tlscore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlscore

import "math/big"

// RFC 7919 finite field Diffie-Hellman groups. Every group is a safe prime
// built from the binary expansion of e, and every group uses generator 2.

// ffdheGroupParams holds the domain parameters for one FFDHE group.
type ffdheGroupParams struct {
	p    *big.Int
	size int // byte length of the prime modulus
}

// ffdheGenerator is the generator g=2 shared by all RFC 7919 groups.
var ffdheGenerator = big.NewInt(2)

// getFFDHEGroupParams returns the parameters for the given FFDHE group, or
// nil if the group is not one of the RFC 7919 groups.
func getFFDHEGroupParams(group CurveID) *ffdheGroupParams {
	switch group {
	case CurveFFDHE2048:
		return ffdhe2048Params
	case CurveFFDHE3072:
		return ffdhe3072Params
	case CurveFFDHE4096:
		return ffdhe4096Params
	case CurveFFDHE6144:
		return ffdhe6144Params
	case CurveFFDHE8192:
		return ffdhe8192Params
	default:
		return nil
	}
}

func mustFFDHEParams(hexPrime string, size int) *ffdheGroupParams {
	p, ok := new(big.Int).SetString(hexPrime, 16)
	if !ok {
		panic("tlscore: malformed FFDHE prime")
	}
	return &ffdheGroupParams{p: p, size: size}
}

// ffdhe2048 prime, RFC 7919 Appendix A.
var ffdhe2048Params = mustFFDHEParams("FFFFFFFFFFFFFFFFADF85458A2BB4A9AAFDC5620273D3CF1D8B9C583CE2D3695"+
	"A9E13641146433FBCC939DCE249B3EF97D2FE363630C75D8F681B202AEC4617A"+
	"D3DF1ED5D5FD65612433F51F5F066ED0856365553DED1AF3B557135E7F57C935"+
	"984F0C70E0E68B77E2A689DAF3EFE8721DF158A136ADE73530ACCA4F483A797A"+
	"BC0AB182B324FB61D108A94BB2C8E3FBB96ADAB760D7F4681D4F42A3DE394DF4"+
	"AE56EDE76372BB190B07A7C8EE0A6D709E02FCE1CDF7E2ECC03404CD28342F61"+
	"9172FE9CE98583FF8E4F1232EEF28183C3FE3B1B4C6FAD733BB5FCBC2EC22005"+
	"C58EF1837D1683B2C6F34A26C1B2EFFA886B423861285C97FFFFFFFFFFFFFFFF", 256)

// ffdhe3072 prime, RFC 7919 Appendix A.
var ffdhe3072Params = mustFFDHEParams("FFFFFFFFFFFFFFFFADF85458A2BB4A9AAFDC5620273D3CF1D8B9C583CE2D3695"+
	"A9E13641146433FBCC939DCE249B3EF97D2FE363630C75D8F681B202AEC4617A"+
	"D3DF1ED5D5FD65612433F51F5F066ED0856365553DED1AF3B557135E7F57C935"+
	"984F0C70E0E68B77E2A689DAF3EFE8721DF158A136ADE73530ACCA4F483A797A"+
	"BC0AB182B324FB61D108A94BB2C8E3FBB96ADAB760D7F4681D4F42A3DE394DF4"+
	"AE56EDE76372BB190B07A7C8EE0A6D709E02FCE1CDF7E2ECC03404CD28342F61"+
	"9172FE9CE98583FF8E4F1232EEF28183C3FE3B1B4C6FAD733BB5FCBC2EC22005"+
	"C58EF1837D1683B2C6F34A26C1B2EFFA886B4238611FCFDCDE355B3B6519035B"+
	"BC34F4DEF99C023861B46FC9D6E6C9077AD91D2691F7F7EE598CB0FAC186D91C"+
	"AEFE130985139270B4130C93BC437944F4FD4452E2D74DD364F2E21E71F54BFF"+
	"5CAE82AB9C9DF69EE86D2BC522363A0DABC521979B0DEADA1DBF9A42D5C4484E"+
	"0ABCD06BFA53DDEF3C1B20EE3FD59D7C25E41D2B66C62E37FFFFFFFFFFFFFFFF", 384)

// ffdhe4096 prime, RFC 7919 Appendix A.
var ffdhe4096Params = mustFFDHEParams("FFFFFFFFFFFFFFFFADF85458A2BB4A9AAFDC5620273D3CF1D8B9C583CE2D3695"+
	"A9E13641146433FBCC939DCE249B3EF97D2FE363630C75D8F681B202AEC4617A"+
	"D3DF1ED5D5FD65612433F51F5F066ED0856365553DED1AF3B557135E7F57C935"+
	"984F0C70E0E68B77E2A689DAF3EFE8721DF158A136ADE73530ACCA4F483A797A"+
	"BC0AB182B324FB61D108A94BB2C8E3FBB96ADAB760D7F4681D4F42A3DE394DF4"+
	"AE56EDE76372BB190B07A7C8EE0A6D709E02FCE1CDF7E2ECC03404CD28342F61"+
	"9172FE9CE98583FF8E4F1232EEF28183C3FE3B1B4C6FAD733BB5FCBC2EC22005"+
	"C58EF1837D1683B2C6F34A26C1B2EFFA886B4238611FCFDCDE355B3B6519035B"+
	"BC34F4DEF99C023861B46FC9D6E6C9077AD91D2691F7F7EE598CB0FAC186D91C"+
	"AEFE130985139270B4130C93BC437944F4FD4452E2D74DD364F2E21E71F54BFF"+
	"5CAE82AB9C9DF69EE86D2BC522363A0DABC521979B0DEADA1DBF9A42D5C4484E"+
	"0ABCD06BFA53DDEF3C1B20EE3FD59D7C25E41D2B669E1EF16E6F52C3164DF4FB"+
	"7930E9E4E58857B6AC7D5F42D69F6D187763CF1D5503400487F55BA57E31CC7A"+
	"7135C886EFB4318AED6A1E012D9E6832A907600A918130C46DC778F971AD0038"+
	"092999A333CB8B7A1A1DB93D7140003C2A4ECEA9F98D0ACC0A8291CDCEC97DCF"+
	"8EC9B55A7F88A46B4DB5A851F44182E1C68A007E5E655F6AFFFFFFFFFFFFFFFF", 512)

// ffdhe6144 prime, RFC 7919 Appendix A.
var ffdhe6144Params = mustFFDHEParams("FFFFFFFFFFFFFFFFADF85458A2BB4A9AAFDC5620273D3CF1D8B9C583CE2D3695"+
	"A9E13641146433FBCC939DCE249B3EF97D2FE363630C75D8F681B202AEC4617A"+
	"D3DF1ED5D5FD65612433F51F5F066ED0856365553DED1AF3B557135E7F57C935"+
	"984F0C70E0E68B77E2A689DAF3EFE8721DF158A136ADE73530ACCA4F483A797A"+
	"BC0AB182B324FB61D108A94BB2C8E3FBB96ADAB760D7F4681D4F42A3DE394DF4"+
	"AE56EDE76372BB190B07A7C8EE0A6D709E02FCE1CDF7E2ECC03404CD28342F61"+
	"9172FE9CE98583FF8E4F1232EEF28183C3FE3B1B4C6FAD733BB5FCBC2EC22005"+
	"C58EF1837D1683B2C6F34A26C1B2EFFA886B4238611FCFDCDE355B3B6519035B"+
	"BC34F4DEF99C023861B46FC9D6E6C9077AD91D2691F7F7EE598CB0FAC186D91C"+
	"AEFE130985139270B4130C93BC437944F4FD4452E2D74DD364F2E21E71F54BFF"+
	"5CAE82AB9C9DF69EE86D2BC522363A0DABC521979B0DEADA1DBF9A42D5C4484E"+
	"0ABCD06BFA53DDEF3C1B20EE3FD59D7C25E41D2B669E1EF16E6F52C3164DF4FB"+
	"7930E9E4E58857B6AC7D5F42D69F6D187763CF1D5503400487F55BA57E31CC7A"+
	"7135C886EFB4318AED6A1E012D9E6832A907600A918130C46DC778F971AD0038"+
	"092999A333CB8B7A1A1DB93D7140003C2A4ECEA9F98D0ACC0A8291CDCEC97DCF"+
	"8EC9B55A7F88A46B4DB5A851F44182E1C68A007E5E0DD9020BFD64B645036C7A"+
	"4E677D2C38532A3A23BA4442CAF53EA63BB454329B7624C8917BDD64B1C0FD4C"+
	"B38E8C334C701C3ACDAD0657FCCFEC719B1F5C3E4E46041F388147FB4CFDB477"+
	"A52471F7A9A96910B855322EDB6340D8A00EF092350511E30ABEC1FFF9E3A26E"+
	"7FB29F8C183023C3587E38DA0077D9B4763E4E4B94B2BBC194C6651E77CAF992"+
	"EEAAC0232A281BF6B3A739C1226116820AE8DB5847A67CBEF9C9091B462D538C"+
	"D72B03746AE77F5E62292C311562A846505DC82DB854338AE49F5235C95B9117"+
	"8CCF2DD5CACEF403EC9D1810C6272B045B3B71F9DC6B80D63FDD4A8E9ADB1E69"+
	"62A69526D43161C1A41D570D7938DAD4A40E329CD0E40E65FFFFFFFFFFFFFFFF", 768)

// ffdhe8192 prime, RFC 7919 Appendix A.
var ffdhe8192Params = mustFFDHEParams("FFFFFFFFFFFFFFFFADF85458A2BB4A9AAFDC5620273D3CF1D8B9C583CE2D3695"+
	"A9E13641146433FBCC939DCE249B3EF97D2FE363630C75D8F681B202AEC4617A"+
	"D3DF1ED5D5FD65612433F51F5F066ED0856365553DED1AF3B557135E7F57C935"+
	"984F0C70E0E68B77E2A689DAF3EFE8721DF158A136ADE73530ACCA4F483A797A"+
	"BC0AB182B324FB61D108A94BB2C8E3FBB96ADAB760D7F4681D4F42A3DE394DF4"+
	"AE56EDE76372BB190B07A7C8EE0A6D709E02FCE1CDF7E2ECC03404CD28342F61"+
	"9172FE9CE98583FF8E4F1232EEF28183C3FE3B1B4C6FAD733BB5FCBC2EC22005"+
	"C58EF1837D1683B2C6F34A26C1B2EFFA886B4238611FCFDCDE355B3B6519035B"+
	"BC34F4DEF99C023861B46FC9D6E6C9077AD91D2691F7F7EE598CB0FAC186D91C"+
	"AEFE130985139270B4130C93BC437944F4FD4452E2D74DD364F2E21E71F54BFF"+
	"5CAE82AB9C9DF69EE86D2BC522363A0DABC521979B0DEADA1DBF9A42D5C4484E"+
	"0ABCD06BFA53DDEF3C1B20EE3FD59D7C25E41D2B669E1EF16E6F52C3164DF4FB"+
	"7930E9E4E58857B6AC7D5F42D69F6D187763CF1D5503400487F55BA57E31CC7A"+
	"7135C886EFB4318AED6A1E012D9E6832A907600A918130C46DC778F971AD0038"+
	"092999A333CB8B7A1A1DB93D7140003C2A4ECEA9F98D0ACC0A8291CDCEC97DCF"+
	"8EC9B55A7F88A46B4DB5A851F44182E1C68A007E5E0DD9020BFD64B645036C7A"+
	"4E677D2C38532A3A23BA4442CAF53EA63BB454329B7624C8917BDD64B1C0FD4C"+
	"B38E8C334C701C3ACDAD0657FCCFEC719B1F5C3E4E46041F388147FB4CFDB477"+
	"A52471F7A9A96910B855322EDB6340D8A00EF092350511E30ABEC1FFF9E3A26E"+
	"7FB29F8C183023C3587E38DA0077D9B4763E4E4B94B2BBC194C6651E77CAF992"+
	"EEAAC0232A281BF6B3A739C1226116820AE8DB5847A67CBEF9C9091B462D538C"+
	"D72B03746AE77F5E62292C311562A846505DC82DB854338AE49F5235C95B9117"+
	"8CCF2DD5CACEF403EC9D1810C6272B045B3B71F9DC6B80D63FDD4A8E9ADB1E69"+
	"62A69526D43161C1A41D570D7938DAD4A40E329CCFF46AAA36AD004CF600C838"+
	"1E425A31D951AE64FDB23FCEC9509D43687FEB69EDD1CC5E0B8CC3BDF64B10EF"+
	"86B63142A3AB8829555B2F747C932665CB2C0F1CC01BD70229388839D2AF05E4"+
	"54504AC78B7582822846C0BA35C35F5C59160CC046FD8251541FC68C9C86B022"+
	"BB7099876A460E7451A8A93109703FEE1C217E6C3826E52C51AA691E0E423CFC"+
	"99E9E31650C1217B624816CDAD9A95F9D5B8019488D9C0A0A1FE3075A577E231"+
	"83F81D4A3F2FA4571EFC8CE0BA8A4FE8B6855DFE72B0A66EDED2FBABFBE58A30"+
	"FAFABE1C5D71A87E2F741EF8C1FE86FEA6BBFDE530677F0D97D11D49F7A8443D"+
	"0822E506A9F4614E011E2A94838FF88CD68C8BB7C5C6424CFFFFFFFFFFFFFFFF", 1024)
