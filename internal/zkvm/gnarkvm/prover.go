// Package gnarkvm is a proving backend built on gnark. Programs run natively; the BN254 proof binds the digest of
// their public values to a MiMC commitment of the secret they consumed. Compact proofs use PLONK over KZG, succinct
// proofs use Groth16.
//
// Neither setup is trusted out of the box. Groth16 keys come from a single-party setup, and without Prover.SRSPath the
// KZG SRS comes from gnark's unsafekzg, whose toxic waste is known to anyone who reads its source. Proofs made that
// way can be forged. Point SRSPath at the canonical SRS of a ceremony to make compact proofs sound.
package gnarkvm

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	kzgbn254 "github.com/consensys/gnark-crypto/ecc/bn254/kzg"
	"github.com/consensys/gnark-crypto/kzg"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/test/unsafekzg"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zkpoex/disclosure/internal/utils/timingutils"
	"github.com/zkpoex/disclosure/internal/zkvm"
)

// Prover implements zkvm.Prover.
type Prover struct {
	Programs map[string]zkvm.Program
	// KeyCacheDir keeps proving and verifying keys between runs so the verifying key identifier stays stable. Empty
	// disables the cache.
	KeyCacheDir string
	// SRSPath is a canonical BN254 KZG SRS as written by gnark-crypto. Empty falls back to an insecure test SRS.
	SRSPath string

	mu    sync.Mutex
	setup map[string]*setupKeys
}

type setupKeys struct {
	strength  zkvm.Strength
	ccs       constraint.ConstraintSystem
	groth16PK groth16.ProvingKey
	plonkPK   plonk.ProvingKey
	vk        io.WriterTo
}

func (sk *setupKeys) pk() io.WriterTo {
	if sk.strength == zkvm.Compact {
		return sk.plonkPK
	}

	return sk.groth16PK
}

func NewProver(programs map[string]zkvm.Program, keyCacheDir string) *Prover {
	return &Prover{Programs: programs, KeyCacheDir: keyCacheDir}
}

// Setup compiles the circuit for the strength and loads or generates its keys. Results are memoized per process.
func (p *Prover) Setup(ctx context.Context, programID string, strength zkvm.Strength) (*zkvm.Keys, error) {
	defer timingutils.GetDeferrableTimingLogger(fmt.Sprintf("setup %v (%v)", programID, strength))()

	if _, ok := p.Programs[programID]; !ok {
		return nil, fmt.Errorf("未注册的程序 %v", programID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cacheKey := fmt.Sprintf("%v.%v", programID, strength)
	sk, ok := p.setup[cacheKey]
	if !ok {
		var err error
		sk, err = p.loadOrSetup(ctx, cacheKey, strength)
		if err != nil {
			return nil, err
		}

		if p.setup == nil {
			p.setup = make(map[string]*setupKeys)
		}
		p.setup[cacheKey] = sk
	}

	vkBytes, err := serialize(sk.vk)
	if err != nil {
		return nil, errors.Wrap(err, "无法序列化验证密钥")
	}

	h := sha256.New()
	h.Write([]byte(programID))
	h.Write(vkBytes)

	return &zkvm.Keys{
		ProgramID: programID,
		Strength:  strength,
		VKey:      "0x" + hex.EncodeToString(h.Sum(nil)),
		Handle:    sk,
	}, nil
}

// Prove runs the program on stdin and proves the execution. The proof bytes are the 32-byte key commitment followed
// by the serialized gnark proof.
func (p *Prover) Prove(ctx context.Context, keys *zkvm.Keys, stdin []byte) (*zkvm.Proof, error) {
	defer timingutils.GetDeferrableTimingLogger(fmt.Sprintf("prove %v (%v)", keys.ProgramID, keys.Strength))()

	sk, ok := keys.Handle.(*setupKeys)
	if !ok {
		return nil, fmt.Errorf("密钥不是由该证明后端生成的")
	}

	program, ok := p.Programs[keys.ProgramID]
	if !ok {
		return nil, fmt.Errorf("未注册的程序 %v", keys.ProgramID)
	}

	exec, err := program(stdin)
	if err != nil {
		return nil, errors.Wrapf(err, "程序 %v 执行失败", keys.ProgramID)
	}

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	assign, commitment, err := assignment(exec.PublicValues, exec.Secret)
	if err != nil {
		return nil, err
	}

	witness, err := frontend.NewWitness(assign, ecc.BN254.ScalarField())
	if err != nil {
		return nil, errors.Wrap(err, "无法构造见证")
	}

	var proof io.WriterTo
	switch sk.strength {
	case zkvm.Compact:
		proof, err = plonk.Prove(sk.ccs, sk.plonkPK, witness)
	case zkvm.Succinct:
		proof, err = groth16.Prove(sk.ccs, sk.groth16PK, witness)
	default:
		err = fmt.Errorf("未知的证明强度 %v", sk.strength)
	}
	if err != nil {
		return nil, errors.Wrap(err, "无法生成证明")
	}

	proofBytes, err := serialize(proof)
	if err != nil {
		return nil, errors.Wrap(err, "无法序列化证明")
	}

	return &zkvm.Proof{
		ProgramID:    keys.ProgramID,
		Strength:     keys.Strength,
		VKey:         keys.VKey,
		PublicValues: exec.PublicValues,
		Proof:        append(commitment, proofBytes...),
	}, nil
}

func (p *Prover) loadOrSetup(ctx context.Context, cacheKey string, strength zkvm.Strength) (*setupKeys, error) {
	var builder frontend.NewBuilder
	switch strength {
	case zkvm.Compact:
		builder = scs.NewBuilder
	case zkvm.Succinct:
		builder = r1cs.NewBuilder
	default:
		return nil, fmt.Errorf("未知的证明强度 %v", strength)
	}

	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), builder, &disclosureCircuit{})
	if err != nil {
		return nil, errors.Wrap(err, "无法编译电路")
	}

	if strength == zkvm.Compact && p.SRSPath != "" {
		tag, err := fileTag(p.SRSPath)
		if err != nil {
			return nil, errors.Wrap(err, "无法读取 KZG SRS")
		}
		cacheKey += "." + tag
	}

	if sk, err := p.loadCached(cacheKey, ccs, strength); err != nil {
		log.Warnf("无法读取缓存的密钥 %v，将重新生成: %v", cacheKey, err)
	} else if sk != nil {
		log.Debugf("使用缓存的密钥 %v", cacheKey)
		return sk, nil
	}

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	sk := &setupKeys{strength: strength, ccs: ccs}
	switch strength {
	case zkvm.Compact:
		srs, srsLagrange, err := p.plonkSRS(ccs)
		if err != nil {
			return nil, err
		}
		pk, vk, err := plonk.Setup(ccs, srs, srsLagrange)
		if err != nil {
			return nil, errors.Wrap(err, "无法生成 PLONK 密钥")
		}
		sk.plonkPK, sk.vk = pk, vk
	case zkvm.Succinct:
		pk, vk, err := groth16.Setup(ccs)
		if err != nil {
			return nil, errors.Wrap(err, "无法生成 Groth16 密钥")
		}
		sk.groth16PK, sk.vk = pk, vk
	}

	if err = p.storeCached(cacheKey, sk); err != nil {
		log.Warnf("无法缓存密钥 %v: %v", cacheKey, err)
	}

	return sk, nil
}

// plonkSRS returns the canonical and Lagrange SRS sized for ccs.
func (p *Prover) plonkSRS(ccs constraint.ConstraintSystem) (kzg.SRS, kzg.SRS, error) {
	if p.SRSPath == "" {
		log.Warnln("未配置 KZG SRS，使用不安全的测试 SRS，生成的紧凑证明可被伪造")
		srs, srsLagrange, err := unsafekzg.NewSRS(ccs)
		if err != nil {
			return nil, nil, errors.Wrap(err, "无法生成 KZG SRS")
		}
		return srs, srsLagrange, nil
	}

	f, err := os.Open(p.SRSPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "无法打开 KZG SRS")
	}
	defer f.Close()

	var canonical kzgbn254.SRS
	if _, err = canonical.ReadFrom(bufio.NewReader(f)); err != nil {
		return nil, nil, errors.Wrapf(err, "无法解析 KZG SRS %v", p.SRSPath)
	}

	sizeLagrange := ecc.NextPowerOfTwo(uint64(ccs.GetNbConstraints() + ccs.GetNbPublicVariables()))
	sizeCanonical := sizeLagrange + 3
	if uint64(len(canonical.Pk.G1)) < sizeCanonical {
		return nil, nil, fmt.Errorf("KZG SRS 过小: 需要 %v 个 G1 点，实际 %v 个", sizeCanonical, len(canonical.Pk.G1))
	}
	canonical.Pk.G1 = canonical.Pk.G1[:sizeCanonical]

	lagrange := &kzgbn254.SRS{Vk: canonical.Vk}
	lagrange.Pk.G1, err = kzgbn254.ToLagrangeG1(canonical.Pk.G1[:sizeLagrange])
	if err != nil {
		return nil, nil, errors.Wrap(err, "无法转换 KZG SRS 到拉格朗日基")
	}

	log.Debugf("使用 KZG SRS %v (%v 个 G1 点)", p.SRSPath, sizeCanonical)
	return &canonical, lagrange, nil
}

// fileTag names a file by the first bytes of its digest.
func fileTag(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err = io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)[:8]), nil
}

func (p *Prover) loadCached(cacheKey string, ccs constraint.ConstraintSystem, strength zkvm.Strength) (*setupKeys, error) {
	if p.KeyCacheDir == "" {
		return nil, nil
	}

	pkBytes, err := os.ReadFile(filepath.Join(p.KeyCacheDir, cacheKey+".pk"))
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	vkBytes, err := os.ReadFile(filepath.Join(p.KeyCacheDir, cacheKey+".vk"))
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	sk := &setupKeys{strength: strength, ccs: ccs}
	switch strength {
	case zkvm.Compact:
		pk, vk := plonk.NewProvingKey(ecc.BN254), plonk.NewVerifyingKey(ecc.BN254)
		if _, err = pk.ReadFrom(bytes.NewReader(pkBytes)); err != nil {
			return nil, errors.Wrap(err, "无法读取 PLONK 证明密钥")
		}
		if _, err = vk.ReadFrom(bytes.NewReader(vkBytes)); err != nil {
			return nil, errors.Wrap(err, "无法读取 PLONK 验证密钥")
		}
		sk.plonkPK, sk.vk = pk, vk
	case zkvm.Succinct:
		pk, vk := groth16.NewProvingKey(ecc.BN254), groth16.NewVerifyingKey(ecc.BN254)
		if _, err = pk.ReadFrom(bytes.NewReader(pkBytes)); err != nil {
			return nil, errors.Wrap(err, "无法读取 Groth16 证明密钥")
		}
		if _, err = vk.ReadFrom(bytes.NewReader(vkBytes)); err != nil {
			return nil, errors.Wrap(err, "无法读取 Groth16 验证密钥")
		}
		sk.groth16PK, sk.vk = pk, vk
	}

	return sk, nil
}

func (p *Prover) storeCached(cacheKey string, sk *setupKeys) error {
	if p.KeyCacheDir == "" {
		return nil
	}

	if err := os.MkdirAll(p.KeyCacheDir, 0755); err != nil {
		return err
	}

	for ext, w := range map[string]io.WriterTo{".pk": sk.pk(), ".vk": sk.vk} {
		b, err := serialize(w)
		if err != nil {
			return err
		}
		if err = os.WriteFile(filepath.Join(p.KeyCacheDir, cacheKey+ext), b, 0600); err != nil {
			return err
		}
	}

	return nil
}

func serialize(w io.WriterTo) ([]byte, error) {
	buf := new(bytes.Buffer)
	if _, err := w.WriteTo(buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
